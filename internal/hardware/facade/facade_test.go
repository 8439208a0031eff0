package facade

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"
)

// scriptedActor records every request and answers with a fixed reply.
type scriptedActor struct {
	mu     sync.Mutex
	frames [][]string
	reply  string
}

func (a *scriptedActor) Handle(_ context.Context, frames []string) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.frames = append(a.frames, frames)
	return a.reply
}

func (a *scriptedActor) last() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.frames) == 0 {
		return nil
	}
	return a.frames[len(a.frames)-1]
}

func newLocal(t *testing.T, device, reply string) (*LocalTransport, *scriptedActor) {
	t.Helper()
	tr := NewLocalTransport()
	t.Cleanup(func() { tr.Close() })
	actor := &scriptedActor{reply: reply}
	if err := tr.Handle(device, actor); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	return tr, actor
}

func mustPanicWith(t *testing.T, target error, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected panic, got none")
		}
		err, ok := r.(error)
		if !ok || !errors.Is(err, target) {
			t.Fatalf("panic value = %v, want %v", r, target)
		}
	}()
	fn()
}

func TestFacadeVerbs(t *testing.T) {
	ctx := context.Background()
	const timeout = time.Second
	tr, actor := newLocal(t, "dev", ReplyOK)

	gpio := NewGPIO(tr, "dev", timeout)
	led := NewLED(tr, "dev", timeout)
	buzzer := NewBuzzer(tr, "dev", timeout)
	reader := NewWiegandReader(tr, "dev", timeout)
	server := NewExternalServer(tr, "dev", timeout)
	alarm := NewAlarm(tr, "dev", timeout)

	tests := []struct {
		name string
		call func() (bool, error)
		want []string
	}{
		{"gpio on", func() (bool, error) { return gpio.TurnOn(ctx) }, []string{"ON"}},
		{"gpio on for", func() (bool, error) { return gpio.TurnOnFor(ctx, 2*time.Second) }, []string{"ON", "2000"}},
		{"gpio off", func() (bool, error) { return gpio.TurnOff(ctx) }, []string{"OFF"}},
		{"gpio toggle", func() (bool, error) { return gpio.Toggle(ctx) }, []string{"TOGGLE"}},
		{"led blink", func() (bool, error) { return led.Blink(ctx) }, []string{"BLINK"}},
		{"led blink for", func() (bool, error) { return led.BlinkFor(ctx, time.Second, 100*time.Millisecond) }, []string{"BLINK", "1000", "100"}},
		{"buzzer blink for", func() (bool, error) { return buzzer.BlinkFor(ctx, 500*time.Millisecond, 50*time.Millisecond) }, []string{"BLINK", "500", "50"}},
		{"reader beep", func() (bool, error) { return reader.Beep(ctx, 300*time.Millisecond) }, []string{"BEEP", "300"}},
		{"reader buzzer on", func() (bool, error) { return reader.BuzzerOn(ctx) }, []string{"BUZZER_ON"}},
		{"reader buzzer off", func() (bool, error) { return reader.BuzzerOff(ctx) }, []string{"BUZZER_OFF"}},
		{"reader green on", func() (bool, error) { return reader.GreenLedOn(ctx) }, []string{"GREEN_LED", "ON"}},
		{"reader green off", func() (bool, error) { return reader.GreenLedOff(ctx) }, []string{"GREEN_LED", "OFF"}},
		{"reader green blink", func() (bool, error) { return reader.GreenLedBlink(ctx, time.Second, 200*time.Millisecond) }, []string{"GREEN_LED", "BLINK", "1000", "200"}},
		{"server connect", func() (bool, error) { return server.Connect(ctx) }, []string{"CONNECT"}},
		{"server disconnect", func() (bool, error) { return server.Disconnect(ctx) }, []string{"DISCONNECT"}},
		{"alarm set state", func() (bool, error) { return alarm.SetState(ctx, "7", "ACK") }, []string{"SET_STATE", "7", "ACK"}},
		{"alarm disarm", func() (bool, error) { return alarm.Disarm(ctx, "7") }, []string{"DISARM", "7"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := tt.call()
			if err != nil {
				t.Fatalf("call error = %v", err)
			}
			if !ok {
				t.Error("result = false, want true")
			}
			if got := actor.last(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("frames = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSendCommandReplies(t *testing.T) {
	ctx := context.Background()

	t.Run("KO is false", func(t *testing.T) {
		tr, _ := newLocal(t, "led", ReplyKO)
		ok, err := SendCommand(ctx, tr.Channel("led"), time.Second, NewCommand(VerbOn))
		if err != nil {
			t.Fatalf("SendCommand() error = %v", err)
		}
		if ok {
			t.Error("SendCommand() = true, want false")
		}
	})

	t.Run("other reply panics", func(t *testing.T) {
		tr, _ := newLocal(t, "led", "MAYBE")
		mustPanicWith(t, ErrProtocolViolation, func() {
			_, _ = SendCommand(ctx, tr.Channel("led"), time.Second, NewCommand(VerbOn))
		})
	})

	t.Run("no responder", func(t *testing.T) {
		tr := NewLocalTransport()
		defer tr.Close()
		_, err := SendCommand(ctx, tr.Channel("ghost"), time.Second, NewCommand(VerbOn))
		if !errors.Is(err, ErrNoResponder) {
			t.Errorf("SendCommand() error = %v, want ErrNoResponder", err)
		}
	})
}

func TestSendCommandTimeout(t *testing.T) {
	tr := NewLocalTransport()
	release := make(chan struct{})
	defer tr.Close()
	defer close(release)

	slow := HandlerFunc(func(context.Context, []string) string {
		<-release
		return ReplyOK
	})
	if err := tr.Handle("slow", slow); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	start := time.Now()
	ok, err := SendCommand(context.Background(), tr.Channel("slow"), 30*time.Millisecond, NewCommand(VerbOn))
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("SendCommand() error = %v, want ErrTimeout", err)
	}
	if ok {
		t.Error("SendCommand() = true on timeout")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("SendCommand() took %v, want about 30ms", elapsed)
	}
}

func TestLocalTransportDuplicateAndRemove(t *testing.T) {
	tr, _ := newLocal(t, "led", ReplyOK)
	if err := tr.Handle("led", HandlerFunc(func(context.Context, []string) string { return ReplyOK })); err == nil {
		t.Error("Handle() twice for the same device succeeded")
	}
	tr.Remove("led")
	_, err := tr.Channel("led").Request(context.Background(), []string{VerbOn})
	if !errors.Is(err, ErrNoResponder) {
		t.Errorf("Request() after Remove error = %v, want ErrNoResponder", err)
	}
}

func TestPipeClosed(t *testing.T) {
	p := NewPipe()
	p.Close()
	if _, err := p.Request(context.Background(), []string{VerbOn}); !errors.Is(err, ErrClosed) {
		t.Errorf("Request() on closed pipe error = %v, want ErrClosed", err)
	}
	if err := Serve(context.Background(), p, HandlerFunc(func(context.Context, []string) string { return ReplyOK })); err != nil {
		t.Errorf("Serve() on closed pipe error = %v", err)
	}
}

func TestParseLEDState(t *testing.T) {
	tests := []struct {
		reply   string
		want    LEDState
		wantErr bool
	}{
		{reply: "ON", want: LEDState{On: true}},
		{reply: "OFF", want: LEDState{}},
		{reply: "BLINKING 3000 100 ON", want: LEDState{Blinking: true, On: true, Duration: 3 * time.Second, Speed: 100 * time.Millisecond}},
		{reply: "BLINKING 3000 100 OFF", want: LEDState{Blinking: true, Duration: 3 * time.Second, Speed: 100 * time.Millisecond}},
		{reply: "BLINKING x 100 ON", wantErr: true},
		{reply: "BLINKING 3000 100 DIM", wantErr: true},
		{reply: "OK", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.reply, func(t *testing.T) {
			got, err := ParseLEDState(tt.reply)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLEDState() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil {
				if got != tt.want {
					t.Errorf("ParseLEDState() = %+v, want %+v", got, tt.want)
				}
				if got.String() != tt.reply {
					t.Errorf("String() = %q, want %q", got.String(), tt.reply)
				}
			}
		})
	}
}

func TestStateQueries(t *testing.T) {
	ctx := context.Background()

	tr, _ := newLocal(t, "led", "BLINKING 1000 100 OFF")
	st, err := NewLED(tr, "led", time.Second).State(ctx)
	if err != nil {
		t.Fatalf("State() error = %v", err)
	}
	if !st.Blinking || st.Speed != 100*time.Millisecond {
		t.Errorf("State() = %+v", st)
	}

	tr2, _ := newLocal(t, "gpio", "ON")
	on, err := NewGPIO(tr2, "gpio", time.Second).IsOn(ctx)
	if err != nil || !on {
		t.Errorf("IsOn() = %v, %v; want true, nil", on, err)
	}
	off, err := NewGPIO(tr2, "gpio", time.Second).IsOff(ctx)
	if err != nil || off {
		t.Errorf("IsOff() = %v, %v; want false, nil", off, err)
	}

	tr4, _ := newLocal(t, "gpio", ReplyKO)
	if _, err := NewGPIO(tr4, "gpio", time.Second).IsOn(ctx); !errors.Is(err, ErrRejected) {
		t.Errorf("IsOn() on KO error = %v, want ErrRejected", err)
	}
	if _, err := NewLED(tr4, "gpio", time.Second).State(ctx); !errors.Is(err, ErrRejected) {
		t.Errorf("State() on KO error = %v, want ErrRejected", err)
	}

	tr3, _ := newLocal(t, "gpio", "OK")
	mustPanicWith(t, ErrProtocolViolation, func() {
		_, _ = NewGPIO(tr3, "gpio", time.Second).IsOn(ctx)
	})
}

func TestAlarm(t *testing.T) {
	ctx := context.Background()

	tr, actor := newLocal(t, "alarm", "OK 42")
	id, err := NewAlarm(tr, "alarm", time.Second).Raise(ctx, "intrusion", "door forced")
	if err != nil {
		t.Fatalf("Raise() error = %v", err)
	}
	if id != "42" {
		t.Errorf("Raise() = %q, want 42", id)
	}
	if want := []string{"RAISE", "intrusion", "door forced"}; !reflect.DeepEqual(actor.last(), want) {
		t.Errorf("frames = %v, want %v", actor.last(), want)
	}

	tr2, _ := newLocal(t, "alarm", ReplyKO)
	if _, err := NewAlarm(tr2, "alarm", time.Second).Raise(ctx, "intrusion", "x"); !errors.Is(err, ErrRejected) {
		t.Errorf("Raise() error = %v, want ErrRejected", err)
	}
	if _, err := NewAlarm(tr2, "alarm", time.Second).State(ctx, "42"); !errors.Is(err, ErrRejected) {
		t.Errorf("State() error = %v, want ErrRejected", err)
	}

	tr3, _ := newLocal(t, "alarm", "ACTIVE")
	state, err := NewAlarm(tr3, "alarm", time.Second).State(ctx, "42")
	if err != nil || state != "ACTIVE" {
		t.Errorf("State() = %q, %v; want ACTIVE, nil", state, err)
	}
}
