package collab

import (
	"encoding/json"

	"github.com/allthatprinting/pinto/backend-go/internal/design"
	"github.com/allthatprinting/pinto/backend-go/internal/engine"
)

type Message struct {
	Type     string          `json:"type"`
	DesignID string          `json:"designId,omitempty"`
	ClientID string          `json:"clientId,omitempty"`
	UserID   string          `json:"userId,omitempty"`
	Seq      int64           `json:"seq,omitempty"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}

const (
	TypeError = "error"

	// Connection
	TypeWelcome = "welcome"
	TypeJoin    = "session.join"
	TypeLeave   = "session.leave"

	// State sync (server -> client)
	TypeState = "state"

	// Scene commands (client -> server)
	TypeElementAdd     = "element.add"
	TypeElementUpdate  = "element.update"
	TypeElementDelete  = "element.delete"
	TypeElementLayer   = "element.layer"
	TypeElementVisible = "element.visible"
	TypeElementRotate  = "element.rotate"
	TypeSelect         = "select"
	TypeUndo           = "history.undo"
	TypeRedo           = "history.redo"
	TypeCanvasReset    = "canvas.reset"
	TypeSave           = "design.save"

	// Input events (client -> server)
	TypePointerPress = "pointer.press"
	TypePointerDown  = "pointer.down"
	TypePointerMove  = "pointer.move"
	TypePointerUp    = "pointer.up"
	TypePointerLeave = "pointer.leave"
	TypeCanvasDown   = "canvas.down"
	TypeKeyDown      = "key.down"
)

// --- Payloads ---

type WelcomePayload struct {
	ClientID string       `json:"clientId"`
	State    engine.State `json:"state"`
}

type SessionPayload struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName,omitempty"`
}

// StatePayload carries the session state plus the draw list to render.
type StatePayload struct {
	engine.State
	Commands []engine.DrawCommand `json:"commands"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

type ElementAddPayload struct {
	Element design.Element `json:"element"`
}

type ElementUpdatePayload struct {
	ID    string              `json:"id"`
	Patch design.ElementPatch `json:"patch"`
}

type ElementRefPayload struct {
	ID string `json:"id"`
}

type ElementLayerPayload struct {
	ID        string                `json:"id"`
	Direction engine.LayerDirection `json:"direction"`
}

type ElementVisiblePayload struct {
	ID      string `json:"id"`
	Visible bool   `json:"visible"`
}

// ElementRotatePayload rotates by Delta degrees; zero means a quarter turn.
type ElementRotatePayload struct {
	ID    string  `json:"id"`
	Delta float64 `json:"delta,omitempty"`
}

type CanvasResetPayload struct {
	ProductType string `json:"productType"`
	// Preset picks a named size from the product's presets; empty uses the first.
	Preset string `json:"preset,omitempty"`
	// WidthMM and HeightMM set a custom size and take precedence over Preset.
	WidthMM  float64 `json:"widthMM,omitempty"`
	HeightMM float64 `json:"heightMM,omitempty"`
}

type PointerPayload struct {
	ID     string  `json:"id,omitempty"`
	Handle string  `json:"handle,omitempty"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

type KeyPayload struct {
	Key string `json:"key"`
}
