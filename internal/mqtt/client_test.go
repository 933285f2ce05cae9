package mqtt

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeToken struct {
	done chan struct{}
	err  error
}

func newFakeToken() *fakeToken {
	return &fakeToken{done: make(chan struct{})}
}

func (f *fakeToken) Done() <-chan struct{} {
	return f.done
}

func (f *fakeToken) Error() error {
	return f.err
}

func (f *fakeToken) settle(err error) {
	f.err = err
	close(f.done)
}

func TestWaitConnect(t *testing.T) {
	t.Run("successful connect", func(t *testing.T) {
		token := newFakeToken()
		token.settle(nil)

		if err := waitConnect(context.Background(), token); err != nil {
			t.Errorf("waitConnect() = %v, want nil", err)
		}
	})

	t.Run("failed connect", func(t *testing.T) {
		token := newFakeToken()
		token.settle(errors.New("connection refused"))

		if err := waitConnect(context.Background(), token); err == nil {
			t.Error("waitConnect() = nil, want the connect error")
		}
	})

	t.Run("cancellation wins over a never-settling token", func(t *testing.T) {
		token := newFakeToken()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		done := make(chan error, 1)
		go func() {
			done <- waitConnect(ctx, token)
		}()

		select {
		case err := <-done:
			if !errors.Is(err, context.Canceled) {
				t.Errorf("waitConnect() = %v, want context.Canceled", err)
			}
		case <-time.After(time.Second):
			t.Fatal("waitConnect() did not return after cancellation")
		}
	})
}

func TestParseCommand(t *testing.T) {
	payload := []byte(`{
		"id": "cmd-42",
		"numbers": [
			{"number_token": 2, "previous_token": "playlist"},
			{"number_token": 1, "previous_token": "device"}
		],
		"nouns": ["spotify", "playlist"],
		"client_request": {
			"text": "spotify play playlist 2 on device 1",
			"room": "living_room",
			"output_topic": "assistant/response/livingroom"
		}
	}`)

	cmd, err := ParseCommand(payload)
	if err != nil {
		t.Fatalf("ParseCommand() failed: %v", err)
	}

	if cmd.ID != "cmd-42" {
		t.Errorf("ID = %q, want cmd-42", cmd.ID)
	}
	if cmd.Room != "living_room" {
		t.Errorf("Room = %q, want living_room", cmd.Room)
	}
	if cmd.OutputTopic != "assistant/response/livingroom" {
		t.Errorf("OutputTopic = %q", cmd.OutputTopic)
	}
	if len(cmd.Nouns) != 2 || cmd.Nouns[0] != "spotify" {
		t.Errorf("Nouns = %v", cmd.Nouns)
	}

	if len(cmd.Numbers) != 2 {
		t.Fatalf("Numbers = %v, want two entries", cmd.Numbers)
	}
	if cmd.Numbers[0].Value != 2 || cmd.Numbers[0].Previous != "playlist" {
		t.Errorf("Numbers[0] = %+v", cmd.Numbers[0])
	}
	if cmd.Numbers[1].Value != 1 || cmd.Numbers[1].Previous != "device" {
		t.Errorf("Numbers[1] = %+v", cmd.Numbers[1])
	}
}

func TestParseCommand_DerivesNumbersFromText(t *testing.T) {
	payload := []byte(`{
		"id": "cmd-43",
		"nouns": ["spotify"],
		"client_request": {
			"text": "set the volume to 70",
			"room": "kitchen",
			"output_topic": "assistant/response/kitchen"
		}
	}`)

	cmd, err := ParseCommand(payload)
	if err != nil {
		t.Fatalf("ParseCommand() failed: %v", err)
	}

	if len(cmd.Numbers) != 1 {
		t.Fatalf("Numbers = %v, want one derived entry", cmd.Numbers)
	}
	if cmd.Numbers[0].Value != 70 || cmd.Numbers[0].Previous != "to" {
		t.Errorf("Numbers[0] = %+v, want value 70 after \"to\"", cmd.Numbers[0])
	}
}

func TestParseCommand_DerivedNumbersKeepOvershootingVolume(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{"above the cap", "set the volume to 150", 150},
		{"one hundred", "set the volume to 100", 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload := []byte(`{
				"id": "cmd-45",
				"nouns": ["spotify"],
				"client_request": {
					"text": "` + tt.text + `",
					"room": "kitchen",
					"output_topic": "assistant/response/kitchen"
				}
			}`)

			cmd, err := ParseCommand(payload)
			if err != nil {
				t.Fatalf("ParseCommand() failed: %v", err)
			}

			// The raw value must survive extraction so volume capping
			// happens at execution, not by dropping the request.
			if len(cmd.Numbers) != 1 {
				t.Fatalf("Numbers = %v, want one derived entry", cmd.Numbers)
			}
			if cmd.Numbers[0].Value != tt.want || cmd.Numbers[0].Previous != "to" {
				t.Errorf("Numbers[0] = %+v, want value %d after \"to\"", cmd.Numbers[0], tt.want)
			}
		})
	}
}

func TestParseCommand_DeviceName(t *testing.T) {
	payload := []byte(`{
		"id": "cmd-44",
		"client_request": {
			"text": "play playlist 1",
			"room": "kitchen",
			"device": "kitchen-speaker",
			"output_topic": "assistant/response/kitchen"
		}
	}`)

	cmd, err := ParseCommand(payload)
	if err != nil {
		t.Fatalf("ParseCommand() failed: %v", err)
	}

	if cmd.DeviceName != "kitchen-speaker" {
		t.Errorf("DeviceName = %q, want kitchen-speaker", cmd.DeviceName)
	}
}

func TestParseCommand_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"malformed json", `{not json`},
		{"missing text", `{"id": "cmd-1", "client_request": {"room": "kitchen"}}`},
		{"empty payload", `{}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseCommand([]byte(tt.payload)); err == nil {
				t.Errorf("ParseCommand(%q) should fail", tt.payload)
			}
		})
	}
}
