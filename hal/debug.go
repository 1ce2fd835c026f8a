package hal

// DebugWriter is a function type for writing debug messages
type DebugWriter func(string)

// Event captures a configuration event for post-mortem analysis
type Event struct {
	Kind       EventKind
	Peripheral uint8 // pac.Peripheral, or 0xFF when not applicable
	Value1     uint32
	Value2     uint32
}

// EventKind identifies what an Event records
type EventKind uint8

// Event kinds
const (
	EvtClockEnable   EventKind = 1 + iota // Value1=domain, Value2=frequency
	EvtClockDisable                       // Value1=domain
	EvtGateOpen                           // peripheral clock gate set
	EvtGateClose                          // peripheral clock gate cleared
	EvtPinTransition                      // Value1=pin, Value2=new state kind
	EvtDriverNew                          // driver constructed on Peripheral
	EvtDriverFree                         // driver released Peripheral
	EvtRxOverrun                          // Value1=dropped bytes
	EvtCommand                            // console command, Value1=argument count
)

func (k EventKind) String() string {
	switch k {
	case EvtClockEnable:
		return "CLOCK_ON"
	case EvtClockDisable:
		return "CLOCK_OFF"
	case EvtGateOpen:
		return "GATE_ON"
	case EvtGateClose:
		return "GATE_OFF"
	case EvtPinTransition:
		return "PIN"
	case EvtDriverNew:
		return "DRV_NEW"
	case EvtDriverFree:
		return "DRV_FREE"
	case EvtRxOverrun:
		return "RX_OVERRUN"
	case EvtCommand:
		return "COMMAND"
	default:
		return "UNKNOWN"
	}
}

// NoPeripheral marks an Event that is not tied to a peripheral instance
const NoPeripheral = 0xFF

const (
	EventRingSize = 32 // Keep last 32 events for post-mortem
)

var (
	// debugPrintln is the global debug print function (set by platform code)
	debugPrintln DebugWriter = func(s string) {} // No-op by default

	// debugEnabled controls whether Debug output is active
	debugEnabled bool

	eventRing     [EventRingSize]Event
	eventRingHead uint8
	eventsEnabled = true

	// Async debug output channel
	debugChan chan string
)

// SetDebugWriter sets the platform-specific debug output function
// This allows platforms to redirect debug output to a UART, RTT, etc.
func SetDebugWriter(writer DebugWriter) {
	if writer == nil {
		writer = func(string) {}
	}
	debugPrintln = writer
}

// SetDebugEnabled enables or disables debug output
func SetDebugEnabled(enabled bool) {
	debugEnabled = enabled
}

// IsDebugEnabled returns whether debug output is enabled
func IsDebugEnabled() bool {
	return debugEnabled
}

// SetEventsEnabled turns event recording on or off
func SetEventsEnabled(enabled bool) {
	eventsEnabled = enabled
}

// InitAsyncDebug starts the async debug output goroutine. Later calls do
// nothing.
func InitAsyncDebug() {
	if debugChan != nil {
		return
	}
	debugChan = make(chan string, 16)
	go debugOutputWorker(debugChan)
}

func debugOutputWorker(ch chan string) {
	for msg := range ch {
		debugPrintln(msg)
	}
}

// Debug writes a debug message using the platform-specific writer
func Debug(msg string) {
	if debugEnabled {
		debugPrintln(msg)
	}
}

// DebugAsync queues a debug message for async output.
// Returns immediately even if the channel is full (drops message)
func DebugAsync(msg string) {
	if !debugEnabled || debugChan == nil {
		return
	}
	select {
	case debugChan <- msg:
	default:
	}
}

// RecordEvent stores an event in the ring buffer. It never blocks and does
// not allocate, so it may be called from interrupt handlers.
func RecordEvent(kind EventKind, peripheral uint8, value1, value2 uint32) {
	if !eventsEnabled {
		return
	}
	idx := eventRingHead
	eventRing[idx] = Event{
		Kind:       kind,
		Peripheral: peripheral,
		Value1:     value1,
		Value2:     value2,
	}
	eventRingHead = (idx + 1) % EventRingSize
}

// Events returns the recorded events, oldest first
func Events() []Event {
	out := make([]Event, 0, EventRingSize)
	start := eventRingHead
	for i := uint8(0); i < EventRingSize; i++ {
		evt := eventRing[(start+i)%EventRingSize]
		if evt.Kind == 0 {
			continue
		}
		out = append(out, evt)
	}
	return out
}

// DumpEvents writes the event ring through the debug writer, regardless of
// whether debug output is enabled. Call it after a failure.
func DumpEvents() {
	debugPrintln("[HAL] === event ring ===")
	for _, evt := range Events() {
		line := "[HAL] " + evt.Kind.String()
		if evt.Peripheral != NoPeripheral {
			line += " periph=" + itoa(int(evt.Peripheral))
		}
		line += " v1=" + utoa(evt.Value1) + " v2=" + utoa(evt.Value2)
		debugPrintln(line)
	}
	debugPrintln("[HAL] === end ===")
}

// ClearEvents clears the event ring
func ClearEvents() {
	for i := range eventRing {
		eventRing[i] = Event{}
	}
	eventRingHead = 0
}
