package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescriptorKeys(t *testing.T) {
	desc := Descriptor{Rows: 3, Columns: 5}
	assert.Equal(t, uint8(15), desc.KeyCount())

	assert.True(t, desc.ValidKey(0))
	assert.True(t, desc.ValidKey(14))
	assert.False(t, desc.ValidKey(15))

	assert.Equal(t, uint8(0), desc.KeyAt(0, 0))
	assert.Equal(t, uint8(7), desc.KeyAt(1, 2))
	assert.Equal(t, uint8(14), desc.KeyAt(2, 4))

	row, col := desc.Position(7)
	assert.Equal(t, uint8(1), row)
	assert.Equal(t, uint8(2), col)
}

func TestPixelFormat(t *testing.T) {
	assert.Equal(t, 4, FormatRGBA.BytesPerPixel())
	assert.Equal(t, 3, FormatRGB.BytesPerPixel())
	assert.Equal(t, 3, FormatBGR.BytesPerPixel())
	assert.Equal(t, 0, PixelFormat(99).BytesPerPixel())

	assert.Equal(t, "rgba", FormatRGBA.String())
	assert.Equal(t, "bgr", FormatBGR.String())
}

func TestTriggerParse(t *testing.T) {
	for _, trigger := range Triggers {
		parsed, err := ParseTrigger(trigger.String())
		require.NoError(t, err)
		assert.Equal(t, trigger, parsed)
	}

	_, err := ParseTrigger("hold")
	assert.Error(t, err)

	assert.False(t, Trigger(0).IsValid())
	assert.False(t, Trigger(3).IsValid())
}

func TestTriggerJSON(t *testing.T) {
	data, err := json.Marshal(TriggerRelease)
	require.NoError(t, err)
	assert.Equal(t, `"release"`, string(data))

	var trigger Trigger
	require.NoError(t, json.Unmarshal([]byte(`"press"`), &trigger))
	assert.Equal(t, TriggerPress, trigger)

	assert.Error(t, json.Unmarshal([]byte(`"hold"`), &trigger))

	_, err = json.Marshal(Trigger(7))
	assert.Error(t, err)
}

func TestTopics(t *testing.T) {
	assert.True(t, ValidTopic(TopicAll))
	assert.True(t, ValidTopic("device:panel-0"))
	assert.False(t, ValidTopic("device:"))
	assert.False(t, ValidTopic("panel-0"))
	assert.False(t, ValidTopic(""))

	assert.Equal(t, "device:panel-0", DeviceTopic("panel-0"))

	ev := Event{Type: EventButtonUpdated, DeviceID: "panel-0"}
	assert.Equal(t, "device:panel-0", ev.Topic())

	assert.True(t, TopicMatches(TopicAll, "device:panel-0"))
	assert.True(t, TopicMatches("device:panel-0", "device:panel-0"))
	assert.False(t, TopicMatches("device:panel-1", "device:panel-0"))
}
