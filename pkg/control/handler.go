package control

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/panelkit/paneld/pkg/action"
	"github.com/panelkit/paneld/pkg/device"
	"github.com/panelkit/paneld/pkg/log"
	"github.com/panelkit/paneld/pkg/model"
	"github.com/panelkit/paneld/pkg/wire"
)

// Handler routes decoded requests to the device manager and builds
// responses. One handler serves every session.
type Handler struct {
	manager *device.Manager
	broker  *Broker
	logger  *slog.Logger
	capture log.Logger
}

// NewHandler creates a handler. capture may be nil.
func NewHandler(manager *device.Manager, broker *Broker, logger *slog.Logger, capture log.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if capture == nil {
		capture = log.NoopLogger{}
	}
	return &Handler{
		manager: manager,
		broker:  broker,
		logger:  logger,
		capture: capture,
	}
}

// HandleFrame processes one raw frame from a session and returns the
// encoded response. Malformed input produces a single validation error
// response; the session stays usable.
func (h *Handler) HandleFrame(session *Session, data []byte) []byte {
	msg, err := wire.Decode(data)
	if err != nil {
		return h.encode(session, wire.NewError("", wire.CodeValidation, fmt.Sprintf("malformed message: %v", err)))
	}

	h.capture.Log(log.NewMessageEvent(session.ID(), log.DirectionIn, msg.Type, msg.CorrelationID, ""))

	resp := h.Handle(session, msg)
	return h.encode(session, resp)
}

func (h *Handler) encode(session *Session, resp *wire.Message) []byte {
	code := ""
	if resp.Type == wire.TypeError {
		if ep, err := wire.DecodePayload[wire.ErrorPayload](resp); err == nil {
			code = string(ep.Code)
		}
	}
	h.capture.Log(log.NewMessageEvent(session.ID(), log.DirectionOut, resp.Type, resp.CorrelationID, code))

	data, err := wire.Encode(resp)
	if err != nil {
		// Should not happen; fall back to a bare internal error.
		h.logger.Error("response encode failed", "type", resp.Type, "error", err)
		data, _ = wire.Encode(wire.NewError(resp.CorrelationID, wire.CodeInternal, "response encoding failed"))
	}
	return data
}

// Handle routes one decoded message to its operation.
func (h *Handler) Handle(session *Session, msg *wire.Message) *wire.Message {
	if !msg.IsRequest() {
		return wire.NewError(msg.CorrelationID, wire.CodeValidation,
			fmt.Sprintf("unknown request type %q", msg.Type))
	}

	switch msg.Type {
	case wire.TypeListDevices:
		return h.listDevices(msg)
	case wire.TypeGetProfile:
		return h.getProfile(msg)
	case wire.TypeNavigate:
		return h.navigate(msg)
	case wire.TypeBindAction:
		return h.bindAction(msg)
	case wire.TypeUnbind:
		return h.unbind(msg)
	case wire.TypeSetButton:
		return h.setButton(msg)
	case wire.TypeSubscribe:
		return h.subscribe(session, msg)
	case wire.TypeUnsubscribe:
		return h.unsubscribe(session, msg)
	case wire.TypeSetBrightness:
		return h.setBrightness(msg)
	case wire.TypeDropToRoot:
		return h.dropToRoot(msg)
	case wire.TypePressButton:
		return h.pressButton(msg)
	default:
		return wire.NewError(msg.CorrelationID, wire.CodeValidation,
			fmt.Sprintf("unknown request type %q", msg.Type))
	}
}

func (h *Handler) result(msg *wire.Message, payload any) *wire.Message {
	resp, err := wire.NewResult(msg.CorrelationID, payload)
	if err != nil {
		h.logger.Error("result encode failed", "type", msg.Type, "error", err)
		return wire.NewError(msg.CorrelationID, wire.CodeInternal, "result encoding failed")
	}
	return resp
}

func (h *Handler) fail(msg *wire.Message, err error) *wire.Message {
	code := codeFor(err)
	if code == wire.CodeInternal {
		h.logger.Error("request failed", "type", msg.Type, "error", err)
	}
	return wire.NewError(msg.CorrelationID, code, err.Error())
}

func (h *Handler) listDevices(msg *wire.Message) *wire.Message {
	devices := h.manager.List()
	infos := make([]wire.DeviceInfo, 0, len(devices))
	for _, dev := range devices {
		infos = append(infos, wire.DeviceInfo{
			ID:         dev.ID(),
			Descriptor: dev.Descriptor(),
			Connected:  true,
		})
	}
	return h.result(msg, wire.ListDevicesResult{Devices: infos})
}

func (h *Handler) getProfile(msg *wire.Message) *wire.Message {
	req, err := wire.DecodePayload[wire.GetProfileRequest](msg)
	if err != nil {
		return wire.NewError(msg.CorrelationID, wire.CodeValidation, err.Error())
	}
	dev, err := h.manager.Get(req.DeviceID)
	if err != nil {
		return h.fail(msg, err)
	}
	snap, err := dev.Snapshot()
	if err != nil {
		return h.fail(msg, err)
	}
	stack := make([]wire.StackEntry, 0, len(snap.Stack))
	for _, entry := range snap.Stack {
		stack = append(stack, wire.StackEntry{Node: uint32(entry.Node), Name: entry.Name})
	}
	return h.result(msg, wire.GetProfileResult{
		Document:   snap.Document,
		Stack:      stack,
		Brightness: snap.Brightness,
	})
}

func (h *Handler) navigate(msg *wire.Message) *wire.Message {
	req, err := wire.DecodePayload[wire.NavigateRequest](msg)
	if err != nil {
		return wire.NewError(msg.CorrelationID, wire.CodeValidation, err.Error())
	}
	dev, err := h.manager.Get(req.DeviceID)
	if err != nil {
		return h.fail(msg, err)
	}
	switch req.Op {
	case wire.NavigateEnter:
		err = dev.Enter(req.Key)
	case wire.NavigateBack:
		err = dev.Back()
	default:
		return wire.NewError(msg.CorrelationID, wire.CodeValidation,
			fmt.Sprintf("unknown navigate op %q", req.Op))
	}
	if err != nil {
		return h.fail(msg, err)
	}
	return h.result(msg, wire.OK{})
}

func (h *Handler) bindAction(msg *wire.Message) *wire.Message {
	req, err := wire.DecodePayload[wire.BindActionRequest](msg)
	if err != nil {
		return wire.NewError(msg.CorrelationID, wire.CodeValidation, err.Error())
	}
	if !req.Trigger.IsValid() {
		return wire.NewError(msg.CorrelationID, wire.CodeValidation,
			fmt.Sprintf("invalid trigger %d", req.Trigger))
	}
	dev, err := h.manager.Get(req.DeviceID)
	if err != nil {
		return h.fail(msg, err)
	}
	instanceID, err := dev.BindAction(req.Key, req.Trigger, req.Kind, action.Params(req.Params))
	if err != nil {
		return h.fail(msg, err)
	}
	return h.result(msg, wire.BindActionResult{InstanceID: instanceID})
}

func (h *Handler) unbind(msg *wire.Message) *wire.Message {
	req, err := wire.DecodePayload[wire.UnbindRequest](msg)
	if err != nil {
		return wire.NewError(msg.CorrelationID, wire.CodeValidation, err.Error())
	}
	dev, err := h.manager.Get(req.DeviceID)
	if err != nil {
		return h.fail(msg, err)
	}
	if err := dev.Unbind(req.InstanceID); err != nil {
		return h.fail(msg, err)
	}
	return h.result(msg, wire.OK{})
}

func (h *Handler) setButton(msg *wire.Message) *wire.Message {
	req, err := wire.DecodePayload[wire.SetButtonRequest](msg)
	if err != nil {
		return wire.NewError(msg.CorrelationID, wire.CodeValidation, err.Error())
	}
	specs := make([]device.BindingSpec, 0, len(req.Bindings))
	for _, spec := range req.Bindings {
		if !spec.Trigger.IsValid() {
			return wire.NewError(msg.CorrelationID, wire.CodeValidation,
				fmt.Sprintf("invalid trigger %d", spec.Trigger))
		}
		specs = append(specs, device.BindingSpec{
			Trigger: spec.Trigger,
			Kind:    spec.Kind,
			Params:  action.Params(spec.Params),
		})
	}
	dev, err := h.manager.Get(req.DeviceID)
	if err != nil {
		return h.fail(msg, err)
	}
	if err := dev.SetButton(req.Key, specs); err != nil {
		return h.fail(msg, err)
	}
	return h.result(msg, wire.OK{})
}

func (h *Handler) subscribe(session *Session, msg *wire.Message) *wire.Message {
	req, err := wire.DecodePayload[wire.SubscribeRequest](msg)
	if err != nil {
		return wire.NewError(msg.CorrelationID, wire.CodeValidation, err.Error())
	}
	if !model.ValidTopic(req.Topic) {
		return wire.NewError(msg.CorrelationID, wire.CodeUnknownTopic,
			fmt.Sprintf("malformed topic %q", req.Topic))
	}
	session.Subscribe(req.Topic)
	return h.result(msg, wire.OK{})
}

func (h *Handler) unsubscribe(session *Session, msg *wire.Message) *wire.Message {
	req, err := wire.DecodePayload[wire.SubscribeRequest](msg)
	if err != nil {
		return wire.NewError(msg.CorrelationID, wire.CodeValidation, err.Error())
	}
	if !session.Unsubscribe(req.Topic) {
		return wire.NewError(msg.CorrelationID, wire.CodeUnknownTopic,
			fmt.Sprintf("not subscribed to %q", req.Topic))
	}
	return h.result(msg, wire.OK{})
}

func (h *Handler) setBrightness(msg *wire.Message) *wire.Message {
	req, err := wire.DecodePayload[wire.SetBrightnessRequest](msg)
	if err != nil {
		return wire.NewError(msg.CorrelationID, wire.CodeValidation, err.Error())
	}
	dev, err := h.manager.Get(req.DeviceID)
	if err != nil {
		return h.fail(msg, err)
	}
	if err := dev.SetBrightness(req.Brightness); err != nil {
		return h.fail(msg, err)
	}
	return h.result(msg, wire.OK{})
}

func (h *Handler) dropToRoot(msg *wire.Message) *wire.Message {
	req, err := wire.DecodePayload[wire.DropToRootRequest](msg)
	if err != nil {
		return wire.NewError(msg.CorrelationID, wire.CodeValidation, err.Error())
	}
	dev, err := h.manager.Get(req.DeviceID)
	if err != nil {
		return h.fail(msg, err)
	}
	if err := dev.DropToRoot(); err != nil {
		return h.fail(msg, err)
	}
	return h.result(msg, wire.OK{})
}

func (h *Handler) pressButton(msg *wire.Message) *wire.Message {
	req, err := wire.DecodePayload[wire.PressButtonRequest](msg)
	if err != nil {
		return wire.NewError(msg.CorrelationID, wire.CodeValidation, err.Error())
	}
	dev, err := h.manager.Get(req.DeviceID)
	if err != nil {
		return h.fail(msg, err)
	}
	results, err := dev.Press(req.Key)
	if err != nil {
		return h.fail(msg, err)
	}
	return h.result(msg, wire.PressButtonResult{Results: results})
}
