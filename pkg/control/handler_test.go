package control

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panelkit/paneld/pkg/model"
	"github.com/panelkit/paneld/pkg/wire"
)

func TestListDevices(t *testing.T) {
	h := newHarness(t)

	resp := h.request(t, wire.TypeListDevices, nil)
	requireResult(t, resp)

	result, err := wire.DecodePayload[wire.ListDevicesResult](resp)
	require.NoError(t, err)
	require.Len(t, result.Devices, 1)
	assert.Equal(t, "panel-1", result.Devices[0].ID)
	assert.Equal(t, uint8(3), result.Devices[0].Descriptor.Rows)
	assert.Equal(t, uint8(2), result.Devices[0].Descriptor.Columns)
	assert.True(t, result.Devices[0].Connected)
}

func TestBindActionAndGetProfile(t *testing.T) {
	h := newHarness(t)

	resp := h.request(t, wire.TypeBindAction, wire.BindActionRequest{
		DeviceID: "panel-1",
		Key:      2,
		Trigger:  model.TriggerPress,
		Kind:     "toggle",
	})
	requireResult(t, resp)
	bound, err := wire.DecodePayload[wire.BindActionResult](resp)
	require.NoError(t, err)
	assert.NotEmpty(t, bound.InstanceID)

	resp = h.request(t, wire.TypeGetProfile, wire.GetProfileRequest{DeviceID: "panel-1"})
	requireResult(t, resp)
	prof, err := wire.DecodePayload[wire.GetProfileResult](resp)
	require.NoError(t, err)
	require.NotNil(t, prof.Document)
	require.Len(t, prof.Stack, 1)

	root := prof.Document.Nodes[0]
	require.Len(t, root.Buttons, 1)
	require.Len(t, root.Buttons[0].Bindings, 1)
	assert.Equal(t, bound.InstanceID, root.Buttons[0].Bindings[0].ID)
	assert.Equal(t, "toggle", root.Buttons[0].Bindings[0].Kind)
}

func TestBindUnknownKind(t *testing.T) {
	h := newHarness(t)

	resp := h.request(t, wire.TypeBindAction, wire.BindActionRequest{
		DeviceID: "panel-1",
		Key:      0,
		Trigger:  model.TriggerPress,
		Kind:     "no-such-kind",
	})
	requireCode(t, resp, wire.CodeUnknownActionKind)
}

func TestUnknownDevice(t *testing.T) {
	h := newHarness(t)

	resp := h.request(t, wire.TypeGetProfile, wire.GetProfileRequest{DeviceID: "nope"})
	requireCode(t, resp, wire.CodeUnknownDevice)
}

func TestUnbind(t *testing.T) {
	h := newHarness(t)

	resp := h.request(t, wire.TypeBindAction, wire.BindActionRequest{
		DeviceID: "panel-1", Key: 1, Trigger: model.TriggerPress, Kind: "toggle",
	})
	requireResult(t, resp)
	bound, err := wire.DecodePayload[wire.BindActionResult](resp)
	require.NoError(t, err)

	resp = h.request(t, wire.TypeUnbind, wire.UnbindRequest{
		DeviceID: "panel-1", InstanceID: bound.InstanceID,
	})
	requireResult(t, resp)

	resp = h.request(t, wire.TypeUnbind, wire.UnbindRequest{
		DeviceID: "panel-1", InstanceID: bound.InstanceID,
	})
	requireCode(t, resp, wire.CodeUnknownInstance)
}

func TestNavigateIntoFolderAndBack(t *testing.T) {
	h := newHarness(t)

	dev, err := h.manager.Get("panel-1")
	require.NoError(t, err)
	folderNode, err := dev.AddNode("tools")
	require.NoError(t, err)

	resp := h.request(t, wire.TypeBindAction, wire.BindActionRequest{
		DeviceID: "panel-1",
		Key:      0,
		Trigger:  model.TriggerPress,
		Kind:     "folder",
		Params:   map[string]any{"target": float64(folderNode)},
	})
	requireResult(t, resp)

	resp = h.request(t, wire.TypeNavigate, wire.NavigateRequest{
		DeviceID: "panel-1", Op: wire.NavigateEnter, Key: 0,
	})
	requireResult(t, resp)

	stack, err := dev.ActiveStack()
	require.NoError(t, err)
	require.Len(t, stack, 2)
	assert.Equal(t, folderNode, stack[1])

	resp = h.request(t, wire.TypeNavigate, wire.NavigateRequest{
		DeviceID: "panel-1", Op: wire.NavigateBack,
	})
	requireResult(t, resp)

	stack, err = dev.ActiveStack()
	require.NoError(t, err)
	assert.Len(t, stack, 1)
}

func TestEnterNonFolderLeavesStackUnchanged(t *testing.T) {
	h := newHarness(t)

	resp := h.request(t, wire.TypeBindAction, wire.BindActionRequest{
		DeviceID: "panel-1", Key: 0, Trigger: model.TriggerPress, Kind: "toggle",
	})
	requireResult(t, resp)

	resp = h.request(t, wire.TypeNavigate, wire.NavigateRequest{
		DeviceID: "panel-1", Op: wire.NavigateEnter, Key: 0,
	})
	requireCode(t, resp, wire.CodeNotAFolder)

	dev, err := h.manager.Get("panel-1")
	require.NoError(t, err)
	stack, err := dev.ActiveStack()
	require.NoError(t, err)
	assert.Len(t, stack, 1)
}

func TestBackAtRoot(t *testing.T) {
	h := newHarness(t)

	resp := h.request(t, wire.TypeNavigate, wire.NavigateRequest{
		DeviceID: "panel-1", Op: wire.NavigateBack,
	})
	requireCode(t, resp, wire.CodeAtRoot)
}

func TestSetButtonReplacesBindings(t *testing.T) {
	h := newHarness(t)

	resp := h.request(t, wire.TypeBindAction, wire.BindActionRequest{
		DeviceID: "panel-1", Key: 3, Trigger: model.TriggerPress, Kind: "toggle",
	})
	requireResult(t, resp)

	resp = h.request(t, wire.TypeSetButton, wire.SetButtonRequest{
		DeviceID: "panel-1",
		Key:      3,
		Bindings: []wire.BindingSpec{
			{Trigger: model.TriggerPress, Kind: "toggle"},
			{Trigger: model.TriggerRelease, Kind: "toggle"},
		},
	})
	requireResult(t, resp)

	resp = h.request(t, wire.TypeGetProfile, wire.GetProfileRequest{DeviceID: "panel-1"})
	requireResult(t, resp)
	prof, err := wire.DecodePayload[wire.GetProfileResult](resp)
	require.NoError(t, err)

	root := prof.Document.Nodes[0]
	require.Len(t, root.Buttons, 1)
	assert.Len(t, root.Buttons[0].Bindings, 2)
}

func TestPressButtonRunsBothTriggers(t *testing.T) {
	h := newHarness(t)

	resp := h.request(t, wire.TypeBindAction, wire.BindActionRequest{
		DeviceID: "panel-1", Key: 0, Trigger: model.TriggerPress, Kind: "toggle",
	})
	requireResult(t, resp)

	resp = h.request(t, wire.TypePressButton, wire.PressButtonRequest{
		DeviceID: "panel-1", Key: 0,
	})
	requireResult(t, resp)
	result, err := wire.DecodePayload[wire.PressButtonResult](resp)
	require.NoError(t, err)
	require.Len(t, result.Results, 2)
	assert.Equal(t, model.TriggerPress, result.Results[0].Trigger)
	assert.Equal(t, model.TriggerRelease, result.Results[1].Trigger)
	assert.Len(t, result.Results[0].Instances, 1)
	assert.Empty(t, result.Results[1].Instances)
}

func TestSetBrightness(t *testing.T) {
	h := newHarness(t)

	resp := h.request(t, wire.TypeSetBrightness, wire.SetBrightnessRequest{
		DeviceID: "panel-1", Brightness: 60,
	})
	requireResult(t, resp)

	dev, err := h.manager.Get("panel-1")
	require.NoError(t, err)
	snap, err := dev.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, uint8(60), snap.Brightness)
}

func TestSubscribeDeliversEvents(t *testing.T) {
	h := newHarness(t)

	resp := h.request(t, wire.TypeSubscribe, wire.SubscribeRequest{Topic: model.TopicAll})
	requireResult(t, resp)
	assert.Equal(t, StateActive, h.session.State())

	resp = h.request(t, wire.TypeBindAction, wire.BindActionRequest{
		DeviceID: "panel-1", Key: 0, Trigger: model.TriggerPress, Kind: "toggle",
	})
	requireResult(t, resp)

	frames := h.pushed()
	require.NotEmpty(t, frames)

	msg, err := wire.Decode(frames[len(frames)-1])
	require.NoError(t, err)
	assert.Equal(t, wire.TypeEvent, msg.Type)

	event, err := wire.DecodePayload[model.Event](msg)
	require.NoError(t, err)
	assert.Equal(t, model.EventButtonUpdated, event.Type)
	assert.Equal(t, "panel-1", event.DeviceID)
	require.NotNil(t, event.Key)
	assert.Equal(t, uint8(0), *event.Key)
}

func TestSubscribeDeviceTopicFilters(t *testing.T) {
	h := newHarness(t)

	resp := h.request(t, wire.TypeSubscribe, wire.SubscribeRequest{
		Topic: model.DeviceTopic("other-panel"),
	})
	requireResult(t, resp)

	resp = h.request(t, wire.TypeBindAction, wire.BindActionRequest{
		DeviceID: "panel-1", Key: 0, Trigger: model.TriggerPress, Kind: "toggle",
	})
	requireResult(t, resp)

	assert.Empty(t, h.pushed())
}

func TestSubscribeMalformedTopic(t *testing.T) {
	h := newHarness(t)

	resp := h.request(t, wire.TypeSubscribe, wire.SubscribeRequest{Topic: "device:"})
	requireCode(t, resp, wire.CodeUnknownTopic)

	resp = h.request(t, wire.TypeSubscribe, wire.SubscribeRequest{Topic: "bogus"})
	requireCode(t, resp, wire.CodeUnknownTopic)
}

func TestUnsubscribeNotSubscribed(t *testing.T) {
	h := newHarness(t)

	resp := h.request(t, wire.TypeUnsubscribe, wire.SubscribeRequest{Topic: model.TopicAll})
	requireCode(t, resp, wire.CodeUnknownTopic)
}

func TestMalformedFrameKeepsSessionUsable(t *testing.T) {
	h := newHarness(t)

	data := h.handler.HandleFrame(h.session, []byte("{not json"))
	msg, err := wire.Decode(data)
	require.NoError(t, err)
	requireCode(t, msg, wire.CodeValidation)

	// The same session still serves requests.
	req, err := wire.NewRequest(wire.TypeListDevices, "corr-2", nil)
	require.NoError(t, err)
	raw, err := wire.Encode(req)
	require.NoError(t, err)

	data = h.handler.HandleFrame(h.session, raw)
	msg, err = wire.Decode(data)
	require.NoError(t, err)
	requireResult(t, msg)
	assert.Equal(t, "corr-2", msg.CorrelationID)
}

func TestUnknownRequestType(t *testing.T) {
	h := newHarness(t)

	resp := h.handler.Handle(h.session, &wire.Message{Type: "flyToMoon", CorrelationID: "c"})
	requireCode(t, resp, wire.CodeValidation)
}

func TestSubscriptionCyclesLeaveNoResidue(t *testing.T) {
	h := newHarness(t)

	for i := 0; i < 1000; i++ {
		id := fmt.Sprintf("cycle-%d", i)
		session := NewSession(id, func([]byte) error { return nil })
		h.broker.Add(session)
		session.Subscribe(model.TopicAll)
		session.Subscribe(model.DeviceTopic("panel-1"))
		h.broker.Remove(id)
	}

	assert.Equal(t, 1, h.broker.SessionCount())
	assert.Equal(t, 0, h.broker.SubscriptionCount())
}
