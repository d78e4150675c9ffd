package core

import (
	"context"
	"fmt"
	"io"
	"sync"

	"greenhouse-service/internal/hardware"
	"greenhouse-service/internal/logger"
	"greenhouse-service/internal/messaging"
	"greenhouse-service/internal/types"
)

func testLogger() *logger.Logger {
	return logger.NewLogger(nil, logger.LogLevelDebug)
}

// Mock Line
type mockLine struct {
	mu       sync.Mutex
	desc     types.LineDescriptor
	value    int
	valueErr error
	setErr   error
	writes   []int
	closed   int
}

func (l *mockLine) Value() (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.value, l.valueErr
}

func (l *mockLine) SetValue(v int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.setErr != nil {
		return l.setErr
	}
	l.value = v
	l.writes = append(l.writes, v)
	return nil
}

func (l *mockLine) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed++
	return nil
}

func (l *mockLine) closeCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

func (l *mockLine) writeCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.writes)
}

// Mock LineProvider
type mockLineProvider struct {
	mu        sync.Mutex
	lines     map[int]*mockLine
	fail      map[int]bool
	requested []int
}

func newMockLineProvider() *mockLineProvider {
	return &mockLineProvider{
		lines: make(map[int]*mockLine),
		fail:  make(map[int]bool),
	}
}

func (p *mockLineProvider) RequestLine(desc types.LineDescriptor) (hardware.Line, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requested = append(p.requested, desc.Offset)
	if p.fail[desc.Offset] {
		return nil, fmt.Errorf("%w: %s: busy", types.ErrLineConfig, desc.Label)
	}
	line, ok := p.lines[desc.Offset]
	if !ok {
		line = &mockLine{}
		p.lines[desc.Offset] = line
	}
	line.desc = desc
	if desc.Dir == types.DirectionOutput && desc.Initial {
		line.value = 1
	}
	return line, nil
}

func (p *mockLineProvider) line(offset int) *mockLine {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lines[offset]
}

// setLine pre-creates a line so tests can set its input value.
func (p *mockLineProvider) setLine(offset int, line *mockLine) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lines[offset] = line
}

// counts reports successful line requests and line releases.
func (p *mockLineProvider) counts() (configured, released int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, offset := range p.requested {
		if !p.fail[offset] {
			configured++
		}
	}
	for _, l := range p.lines {
		released += l.closeCount()
	}
	return configured, released
}

// Mock BusHandle
type mockHandle struct {
	mu     sync.Mutex
	frame  []byte
	txErr  error
	closed int

	// block, when set, stalls every transfer until it is closed
	block         chan struct{}
	txDone        int
	closedAfterTx int
}

func (h *mockHandle) Tx(w, r []byte) error {
	if h.block != nil {
		<-h.block
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	copy(r, h.frame)
	h.txDone++
	return h.txErr
}

func (h *mockHandle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closedAfterTx = h.txDone
	h.closed++
	return nil
}

func (h *mockHandle) closeCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

// Mock BusAttacher. It fails the first failures attempts; with block set it
// never attaches and waits for ctx instead.
type mockAttacher struct {
	mu       sync.Mutex
	handle   *mockHandle
	failures int
	block    bool
	attempts int
}

func (a *mockAttacher) Attach(ctx context.Context) (hardware.BusHandle, error) {
	a.mu.Lock()
	a.attempts++
	attempt := a.attempts
	block := a.block
	a.mu.Unlock()

	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if attempt <= a.failures {
		return nil, fmt.Errorf("%w: no such port", types.ErrRegistration)
	}
	return a.handle, nil
}

func (a *mockAttacher) attemptCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.attempts
}

// Mock NodeServer
type mockNodes struct {
	mu          sync.Mutex
	registered  map[string]bool
	registerErr map[string]error
	served      map[string]bool
	sinkErr     error
}

func newMockNodes() *mockNodes {
	return &mockNodes{
		registered:  make(map[string]bool),
		registerErr: make(map[string]error),
		served:      make(map[string]bool),
	}
}

func (n *mockNodes) Register(name string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.registerErr[name]; err != nil {
		return err
	}
	n.registered[name] = true
	return nil
}

func (n *mockNodes) Unregister(name string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.registered, name)
	return nil
}

func (n *mockNodes) isRegistered(name string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.registered[name]
}

func (n *mockNodes) isServed(name string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.served[name]
}

func (n *mockNodes) ServeSource(ctx context.Context, name string, open func() (io.ReadCloser, error)) error {
	n.mu.Lock()
	n.served[name] = true
	n.mu.Unlock()
	<-ctx.Done()
	return nil
}

func (n *mockNodes) ServeSink(ctx context.Context, name string, open func() (io.WriteCloser, error)) error {
	n.mu.Lock()
	n.served[name] = true
	err := n.sinkErr
	n.mu.Unlock()
	if err != nil {
		return err
	}
	<-ctx.Done()
	return nil
}

// Mock MessagingClient
type mockMessagingClient struct {
	mu        sync.Mutex
	callbacks messaging.Callbacks

	listenErr    error
	connected    bool
	listening    bool
	closed       bool
	samples      []types.Sample
	outputs      []types.Command
	driverStates []string
}

func (m *mockMessagingClient) SetCallbacks(callbacks messaging.Callbacks) { m.callbacks = callbacks }
func (m *mockMessagingClient) Connect() error                             { m.connected = true; return nil }
func (m *mockMessagingClient) StartListening() error                      { m.listening = m.listenErr == nil; return m.listenErr }
func (m *mockMessagingClient) Close() error                               { m.closed = true; return nil }

func (m *mockMessagingClient) PublishSample(s types.Sample) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.samples = append(m.samples, s)
	return nil
}

func (m *mockMessagingClient) PublishOutputs(cmd types.Command) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outputs = append(m.outputs, cmd)
	return nil
}

func (m *mockMessagingClient) PublishDriverState(driver string, state string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.driverStates = append(m.driverStates, driver+":"+state)
	return nil
}

func (m *mockMessagingClient) publishedSamples() []types.Sample {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]types.Sample(nil), m.samples...)
}

func (m *mockMessagingClient) publishedOutputs() []types.Command {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]types.Command(nil), m.outputs...)
}

func (m *mockMessagingClient) publishedDriverStates() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.driverStates...)
}
