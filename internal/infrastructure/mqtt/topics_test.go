package mqtt

import (
	"bytes"
	"errors"
	"testing"
)

func TestTopics(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"system status", Topics{}.SystemStatus(), "homepresence/system/status"},
		{"snapshot", Topics{}.PresenceSnapshot(), "homepresence/presence/snapshot"},
		{"arrive", Topics{}.PresenceArrive(), "homepresence/presence/event/arrive"},
		{"leave", Topics{}.PresenceLeave(), "homepresence/presence/event/leave"},
		{"owner state", Topics{}.OwnerState("alice"), "homepresence/presence/owner/alice"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("topic = %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestPublish_Validation(t *testing.T) {
	c := &Client{}

	if err := c.Publish("", []byte("x"), 1, false); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("empty topic error = %v, want ErrInvalidTopic", err)
	}
	if err := c.Publish("t", []byte("x"), 3, false); !errors.Is(err, ErrInvalidQoS) {
		t.Errorf("bad qos error = %v, want ErrInvalidQoS", err)
	}
	huge := bytes.Repeat([]byte("x"), maxPayloadSize+1)
	if err := c.Publish("t", huge, 1, false); !errors.Is(err, ErrPublishFailed) {
		t.Errorf("oversize payload error = %v, want ErrPublishFailed", err)
	}
}
