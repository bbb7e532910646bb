//go:build js && wasm

package main

import (
	"encoding/json"
	"syscall/js"

	"github.com/inkboard/inkboard/internal/agent"
	"github.com/inkboard/inkboard/internal/board"
	"github.com/inkboard/inkboard/internal/presence"
	"github.com/inkboard/inkboard/internal/shape"
	"github.com/inkboard/inkboard/internal/store"
)

var (
	ctrl        *board.Controller
	stopChanges func()
)

type openOptions struct {
	Author string         `json:"author"`
	Slot   string         `json:"slot"`
	User   presence.User  `json:"user"`
	Shapes []shape.Record `json:"shapes"`
	// Presences are the records already on the board, keyed by slot.
	Presences map[string]presence.Record `json:"presences"`
}

// changeSet is what the page forwards to the server as shape.set and shape.delete.
type changeSet struct {
	Set     []shape.Record `json:"set"`
	Deleted []string       `json:"deleted"`
}

func main() {
	api := js.Global().Get("Object").New()

	// --- Lifecycle ---
	api.Set("openBoard", js.FuncOf(openBoard))
	api.Set("closeBoard", js.FuncOf(closeBoard))

	// --- Pointer input ---
	api.Set("setViewScale", js.FuncOf(setViewScale))
	api.Set("pointerDown", js.FuncOf(pointerDown))
	api.Set("pointerMove", js.FuncOf(pointerMove))
	api.Set("pointerUp", js.FuncOf(pointerUp))
	api.Set("pointerLeave", js.FuncOf(pointerLeave))

	// --- Edits ---
	api.Set("createShape", js.FuncOf(createShape))
	api.Set("deleteSelected", js.FuncOf(deleteSelected))
	api.Set("duplicateSelected", js.FuncOf(duplicateSelected))
	api.Set("nudge", js.FuncOf(nudge))
	api.Set("bringToFront", js.FuncOf(bringToFront))
	api.Set("selectAll", js.FuncOf(selectAll))
	api.Set("undo", js.FuncOf(undo))
	api.Set("redo", js.FuncOf(redo))

	// --- Collaboration ---
	api.Set("applyRemote", js.FuncOf(applyRemote))
	api.Set("claimPresence", js.FuncOf(claimPresence))
	api.Set("observePresence", js.FuncOf(observePresence))
	api.Set("beginAgentRequest", js.FuncOf(beginAgentRequest))
	api.Set("applyAgentResponse", js.FuncOf(applyAgentResponse))
	api.Set("cancelAgentRequest", js.FuncOf(cancelAgentRequest))
	api.Set("agentBusy", js.FuncOf(agentBusy))

	// --- Queries ---
	api.Set("render", js.FuncOf(render))
	api.Set("hitTest", js.FuncOf(hitTest))
	api.Set("hover", js.FuncOf(hover))
	api.Set("getSelection", js.FuncOf(getSelection))
	api.Set("getShapes", js.FuncOf(getShapes))

	js.Global().Set("inkboard", api)
	js.Global().Set("inkboardWasmReady", js.ValueOf(true))

	// Keep Go runtime alive
	select {}
}

func errorResult(msg string) interface{} {
	return js.ValueOf(map[string]interface{}{"error": msg})
}

func okResult() interface{} {
	return js.ValueOf(map[string]interface{}{"ok": true})
}

func toJSON(v any) interface{} {
	data, err := json.Marshal(v)
	if err != nil {
		return js.ValueOf("null")
	}
	return js.ValueOf(string(data))
}

// --- Lifecycle ---

// openBoard(optionsJSON, callbacks) where callbacks may carry onLocalChange and
// onPresence functions, each called with a JSON string.
func openBoard(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return errorResult("missing board options JSON")
	}
	var opts openOptions
	if err := json.Unmarshal([]byte(args[0].String()), &opts); err != nil {
		return errorResult(err.Error())
	}

	var onLocalChange, onPresence js.Value
	if len(args) > 1 && args[1].Type() == js.TypeObject {
		onLocalChange = args[1].Get("onLocalChange")
		onPresence = args[1].Get("onPresence")
	}

	closeCurrent()
	ctrl = board.New(board.Options{
		Author: opts.Author,
		Slot:   opts.Slot,
		User:   opts.User,
		Shapes: shape.Unwrap(opts.Shapes),
		OnPresence: func(r presence.Record) {
			if onPresence.Type() == js.TypeFunction {
				onPresence.Invoke(toJSON(r))
			}
		},
	})
	stopChanges = ctrl.OnLocalChange(func(ev store.Event) {
		if onLocalChange.Type() == js.TypeFunction {
			onLocalChange.Invoke(toJSON(changesOf(ev)))
		}
	})
	ctrl.ClaimPresence(opts.Presences)
	return okResult()
}

func changesOf(ev store.Event) changeSet {
	out := changeSet{Set: []shape.Record{}, Deleted: []string{}}
	for _, ch := range ev.Changes {
		if ch.After == nil {
			out.Deleted = append(out.Deleted, ch.ID)
		} else {
			out.Set = append(out.Set, shape.Record{Shape: ch.After})
		}
	}
	return out
}

func closeCurrent() {
	if stopChanges != nil {
		stopChanges()
		stopChanges = nil
	}
	if ctrl != nil {
		ctrl.Close()
		ctrl = nil
	}
}

func closeBoard(this js.Value, args []js.Value) interface{} {
	closeCurrent()
	return nil
}

// --- Pointer input ---

func setViewScale(this js.Value, args []js.Value) interface{} {
	if ctrl == nil || len(args) < 1 {
		return nil
	}
	ctrl.SetViewScale(args[0].Float())
	return nil
}

func pointerDown(this js.Value, args []js.Value) interface{} {
	if ctrl == nil || len(args) < 2 {
		return js.ValueOf(board.GestureNone.String())
	}
	shift := len(args) > 2 && args[2].Truthy()
	return js.ValueOf(ctrl.PointerDown(args[0].Float(), args[1].Float(), shift).String())
}

func pointerMove(this js.Value, args []js.Value) interface{} {
	if ctrl == nil || len(args) < 2 {
		return js.ValueOf(false)
	}
	return js.ValueOf(ctrl.PointerMove(args[0].Float(), args[1].Float()))
}

func pointerUp(this js.Value, args []js.Value) interface{} {
	if ctrl == nil {
		return nil
	}
	return js.ValueOf(ctrl.PointerUp().String())
}

func pointerLeave(this js.Value, args []js.Value) interface{} {
	if ctrl == nil {
		return nil
	}
	return js.ValueOf(ctrl.PointerLeave().String())
}

// --- Edits ---

func createShape(this js.Value, args []js.Value) interface{} {
	if ctrl == nil || len(args) < 1 {
		return errorResult("no board open")
	}
	var d shape.Draft
	if err := json.Unmarshal([]byte(args[0].String()), &d); err != nil {
		return errorResult(err.Error())
	}
	s, err := ctrl.CreateShape(d)
	if err != nil {
		return errorResult(err.Error())
	}
	return js.ValueOf(map[string]interface{}{"id": shape.ID(s)})
}

func deleteSelected(this js.Value, args []js.Value) interface{} {
	if ctrl == nil {
		return js.ValueOf(0)
	}
	return js.ValueOf(ctrl.DeleteSelected())
}

func duplicateSelected(this js.Value, args []js.Value) interface{} {
	if ctrl == nil {
		return toJSON([]string{})
	}
	return toJSON(ctrl.DuplicateSelected())
}

func nudge(this js.Value, args []js.Value) interface{} {
	if ctrl == nil || len(args) < 2 {
		return nil
	}
	ctrl.Nudge(args[0].Float(), args[1].Float())
	return nil
}

func bringToFront(this js.Value, args []js.Value) interface{} {
	if ctrl != nil {
		ctrl.BringToFront()
	}
	return nil
}

func selectAll(this js.Value, args []js.Value) interface{} {
	if ctrl != nil {
		ctrl.Selection().SelectAll()
	}
	return nil
}

func undo(this js.Value, args []js.Value) interface{} {
	if ctrl == nil {
		return js.ValueOf(false)
	}
	return js.ValueOf(ctrl.Undo().Undo())
}

func redo(this js.Value, args []js.Value) interface{} {
	if ctrl == nil {
		return js.ValueOf(false)
	}
	return js.ValueOf(ctrl.Undo().Redo())
}

// --- Collaboration ---

func applyRemote(this js.Value, args []js.Value) interface{} {
	if ctrl == nil || len(args) < 1 {
		return errorResult("no board open")
	}
	var cs changeSet
	if err := json.Unmarshal([]byte(args[0].String()), &cs); err != nil {
		return errorResult(err.Error())
	}
	ctrl.ApplyRemote(shape.Unwrap(cs.Set), cs.Deleted)
	return okResult()
}

// claimPresence re-runs the initial color claim, for pages that open the board
// before presence.state arrives.
func claimPresence(this js.Value, args []js.Value) interface{} {
	if ctrl == nil || len(args) < 1 {
		return js.ValueOf("")
	}
	var states map[string]presence.Record
	if err := json.Unmarshal([]byte(args[0].String()), &states); err != nil {
		return js.ValueOf("")
	}
	return js.ValueOf(ctrl.ClaimPresence(states))
}

func observePresence(this js.Value, args []js.Value) interface{} {
	if ctrl == nil || len(args) < 1 {
		return js.ValueOf(false)
	}
	var states map[string]presence.Record
	if err := json.Unmarshal([]byte(args[0].String()), &states); err != nil {
		return js.ValueOf(false)
	}
	return js.ValueOf(ctrl.ObservePresence(states))
}

func beginAgentRequest(this js.Value, args []js.Value) interface{} {
	if ctrl == nil || len(args) < 1 {
		return errorResult("no board open")
	}
	req, err := ctrl.BeginAgentRequest(args[0].String())
	if err != nil {
		return errorResult(err.Error())
	}
	return toJSON(req)
}

func applyAgentResponse(this js.Value, args []js.Value) interface{} {
	if ctrl == nil || len(args) < 1 {
		return errorResult("no board open")
	}
	var resp agent.Response
	if err := json.Unmarshal([]byte(args[0].String()), &resp); err != nil {
		return errorResult(err.Error())
	}
	applied, err := ctrl.ApplyAgentResponse(resp)
	if err != nil {
		return errorResult(err.Error())
	}
	return js.ValueOf(map[string]interface{}{"applied": applied})
}

func cancelAgentRequest(this js.Value, args []js.Value) interface{} {
	if ctrl != nil {
		ctrl.CancelAgentRequest()
	}
	return nil
}

func agentBusy(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(ctrl != nil && ctrl.AgentBusy())
}

// --- Queries ---

func render(this js.Value, args []js.Value) interface{} {
	if ctrl == nil {
		return js.ValueOf("[]")
	}
	return js.ValueOf(ctrl.RenderJSON())
}

func hitTest(this js.Value, args []js.Value) interface{} {
	if ctrl == nil || len(args) < 2 {
		return js.ValueOf("")
	}
	return js.ValueOf(ctrl.HitTest(args[0].Float(), args[1].Float()))
}

func hover(this js.Value, args []js.Value) interface{} {
	if ctrl == nil || len(args) < 2 {
		return js.ValueOf("{}")
	}
	return toJSON(ctrl.Hover(args[0].Float(), args[1].Float()))
}

func getSelection(this js.Value, args []js.Value) interface{} {
	if ctrl == nil {
		return js.ValueOf("[]")
	}
	return toJSON(ctrl.Selection().IDs())
}

func getShapes(this js.Value, args []js.Value) interface{} {
	if ctrl == nil {
		return js.ValueOf("[]")
	}
	return toJSON(shape.Records(ctrl.Store().All()))
}
