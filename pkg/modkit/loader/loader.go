package loader

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/randalmurphal/modkit/pkg/modkit/container"
	"github.com/randalmurphal/modkit/pkg/modkit/errors"
	"github.com/randalmurphal/modkit/pkg/modkit/event"
	"github.com/randalmurphal/modkit/pkg/modkit/module"
	"github.com/randalmurphal/modkit/pkg/modkit/observability"
	"github.com/randalmurphal/modkit/pkg/modkit/registry"
	"github.com/randalmurphal/modkit/pkg/modkit/settings"
)

// deferredCall is a callable waiting for its phase, with its unit.
type deferredCall struct {
	unit string
	call Callable
}

type deferredFactory struct {
	unit    string
	factory FactoryDecl
}

type deferredListener struct {
	unit    string
	scope   module.Scope
	accepts []*event.Type
	create  func() event.Listener
}

// staged is a manager awaiting the end of its LOADING phase.
type staged struct {
	manager *module.Manager
	request settings.Request
}

// Loader orchestrates module loading. It is not safe for concurrent use.
type Loader struct {
	events    *event.Registry
	lifecycle *event.Lifecycle
	settings  *settings.Service

	logger  *slog.Logger
	metrics observability.MetricsRecorder
	spans   observability.SpanManager

	phase     Phase
	group     GroupDeclaration
	pluginIDs *pluginIDs

	staged    []staged
	pending   *container.Array[*module.Manager]
	preInit2  []deferredCall
	inits     []deferredCall
	factories []deferredFactory
	listeners []deferredListener

	live     *registry.DualKey[module.ID, string, *module.Manager]
	products *registry.Registry[string, any]

	// wired holds the instance registered with the event registry per
	// module, so it can be removed again.
	wired    map[module.ID]event.Listener
	sessions *sessionBinder
}

// Option configures a Loader.
type Option func(*Loader)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) {
		l.logger = logger
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m observability.MetricsRecorder) Option {
	return func(l *Loader) {
		l.metrics = m
	}
}

// WithSpanManager sets the span manager for phase tracing.
func WithSpanManager(s observability.SpanManager) Option {
	return func(l *Loader) {
		l.spans = s
	}
}

// New creates an idle loader. The loader binds itself as the settings host
// and listens to lifecycle events for session-scoped instances.
// A nil settings service uses an in-memory store.
func New(events *event.Registry, lifecycle *event.Lifecycle, svc *settings.Service, opts ...Option) (*Loader, error) {
	if events == nil || lifecycle == nil {
		return nil, fmt.Errorf("loader requires an event registry and lifecycle")
	}
	if svc == nil {
		svc = settings.NewService(nil)
	}

	l := &Loader{
		events:    events,
		lifecycle: lifecycle,
		settings:  svc,
		logger:    slog.Default(),
		metrics:   observability.NoopMetrics{},
		spans:     observability.NoopSpanManager{},
		pluginIDs: newPluginIDs(),
		pending:   container.NewArray[*module.Manager](0),
		live: registry.NewDualKey[module.ID](func(m *module.Manager) string {
			return m.Descriptor().Capability()
		}),
		products: registry.New[string, any](),
		wired:    make(map[module.ID]event.Listener),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = observability.EnrichLogger(l.logger, "loader")

	binder, err := newSessionBinder(l)
	if err != nil {
		return nil, err
	}
	l.sessions = binder
	svc.Bind(l)
	return l, nil
}

// Phase returns the current phase.
func (l *Loader) Phase() Phase {
	return l.phase
}

// Group returns the group being loaded. Zero outside LOADING.
func (l *Loader) Group() GroupDeclaration {
	return l.group
}

func (l *Loader) illegal(op string, expected ...Phase) error {
	names := make([]string, len(expected))
	for i, p := range expected {
		names[i] = p.String()
	}
	return &errors.IllegalStateError{Op: op, Phase: l.phase.String(), Expected: names}
}

// StartLoading enters LOADING for group. Valid only in IDLE.
func (l *Loader) StartLoading(ctx context.Context, group GroupDeclaration) error {
	if l.phase != PhaseIdle {
		return l.illegal("StartLoading", PhaseIdle)
	}
	l.enterGroup(ctx, group)
	l.phase = PhaseLoading
	return nil
}

// SwitchGroup ends the current group's LOADING phase and starts loading
// group. Valid only in LOADING. If a PreInit2 callable of the current
// group fails the loader stays on the current group.
func (l *Loader) SwitchGroup(ctx context.Context, group GroupDeclaration) error {
	if l.phase != PhaseLoading {
		return l.illegal("SwitchGroup", PhaseLoading)
	}
	aborted, err := l.finishLoading(ctx)
	if aborted {
		return err
	}
	l.enterGroup(ctx, group)
	return err
}

func (l *Loader) enterGroup(ctx context.Context, group GroupDeclaration) {
	l.group = group
	l.pluginIDs.setGroup(group)
	observability.LogPhaseStart(l.logger, PhaseLoading.String(), group.Name)
	l.spans.AddSpanEvent(ctx, "loader.group", attribute.String("group", group.Name))
}

// Load processes units of the current group in order.
//
// Malformed units are rejected with a configuration error and skipped. A
// failing PreInit1 callable aborts the rest of the scan. The returned error
// joins every failure.
func (l *Loader) Load(ctx context.Context, units []UnitDeclaration) error {
	if l.phase != PhaseLoading {
		return l.illegal("Load", PhaseLoading)
	}

	ctx, span := l.spans.StartPhaseSpan(ctx, "load", l.group.Name)
	done := observability.TimedOperation()

	var errs []error
	for _, u := range units {
		err := l.loadUnit(ctx, u)
		l.metrics.RecordUnit(ctx, l.group.Name, err == nil)
		if err == nil {
			continue
		}
		errs = append(errs, err)
		if errors.IsInvocation(err) {
			break
		}
		observability.LogUnitRejected(l.logger, u.Name, err)
		l.spans.AddSpanEvent(ctx, "unit.rejected", attribute.String("unit", u.Name))
	}

	err := stderrors.Join(errs...)
	l.metrics.RecordPhase(ctx, "load", l.group.Name, done(), err)
	l.spans.EndSpanWithError(span, err)
	return err
}

// loadUnit validates a unit completely before it has any effect, then runs
// its PreInit1 callables and stages the rest.
func (l *Loader) loadUnit(ctx context.Context, u UnitDeclaration) error {
	if u.Name == "" {
		return errors.Configuration("<unnamed unit>", "unit has no name")
	}
	pluginID, err := l.pluginIDs.resolve(u)
	if err != nil {
		return err
	}

	var st *staged
	if u.Module != nil {
		st, err = l.buildModule(u, pluginID)
		if err != nil {
			return err
		}
	}

	var listener *deferredListener
	if u.Listener != nil {
		accepts, err := l.resolveTypes(u.Name, u.Listener.Accepts)
		if err != nil {
			return err
		}
		if st != nil {
			// A module's instance is its listener.
			st.manager.Subscribe(accepts...)
		} else {
			if u.Listener.New == nil {
				return errors.Configuration(u.Name, "listener has no constructor")
			}
			if len(accepts) == 0 {
				return errors.Configuration(u.Name, "listener accepts no event types")
			}
			listener = &deferredListener{unit: u.Name, scope: u.Listener.Scope, accepts: accepts, create: u.Listener.New}
		}
	}

	for _, c := range u.Callables {
		if c.Fn == nil {
			return errors.Configuration(u.Name, "callable %q has no function", c.Name)
		}
		if c.Tag < PreInit1 || c.Tag > Init {
			return errors.Configuration(u.Name, "callable %q has unknown tag %d", c.Name, c.Tag)
		}
	}
	seen := make(map[string]bool, len(u.Factories))
	for _, f := range u.Factories {
		if f.Name == "" || f.Produce == nil {
			return errors.Configuration(u.Name, "factory %q is incomplete", f.Name)
		}
		if seen[f.Name] {
			return errors.Configuration(u.Name, "factory %q declared twice", f.Name)
		}
		seen[f.Name] = true
	}

	for _, c := range u.Callables {
		if c.Tag != PreInit1 {
			continue
		}
		if err := l.run(ctx, u.Name, c); err != nil {
			return err
		}
	}

	if st != nil {
		l.staged = append(l.staged, *st)
		l.pending.Add(st.manager)
		observability.LogModuleStaged(l.logger, st.manager.Descriptor().Name(), pluginID)
	}
	if listener != nil {
		l.listeners = append(l.listeners, *listener)
	}
	for _, c := range u.Callables {
		switch c.Tag {
		case PreInit2:
			l.preInit2 = append(l.preInit2, deferredCall{unit: u.Name, call: c})
		case Init:
			l.inits = append(l.inits, deferredCall{unit: u.Name, call: c})
		}
	}
	for _, f := range u.Factories {
		l.factories = append(l.factories, deferredFactory{unit: u.Name, factory: f})
	}
	return nil
}

func (l *Loader) buildModule(u UnitDeclaration, pluginID string) (*staged, error) {
	decl := u.Module
	name := decl.Name
	if name == "" {
		name = u.Name
	}
	id := module.ID{Name: name, PluginID: pluginID}

	capability := decl.Capability
	if capability == "" {
		capability = id.String()
	}
	desc, err := module.NewDescriptor(id, capability, decl.Category, decl.Description)
	if err != nil {
		return nil, &errors.ConfigurationError{Unit: u.Name, Reason: "invalid module", Err: err}
	}
	if decl.Factory == nil {
		return nil, errors.Configuration(u.Name, "module %s has no factory", id)
	}
	types, err := l.resolveTypes(u.Name, decl.Events)
	if err != nil {
		return nil, err
	}

	m := module.NewManager(desc, module.Flags(decl.Scope, decl.AlwaysInstantiate), decl.Factory)
	m.Subscribe(types...)
	if decl.StartDisabled {
		m.SetEnabled(false)
	}
	return &staged{
		manager: m,
		request: settings.Request{Descriptor: desc, Schema: decl.Schema, Defaults: decl.Defaults},
	}, nil
}

func (l *Loader) resolveTypes(unit string, names []string) ([]*event.Type, error) {
	types := make([]*event.Type, 0, len(names))
	for _, n := range names {
		t, ok := l.events.Lookup(n)
		if !ok {
			return nil, errors.Configuration(unit, "unknown event type %q", n)
		}
		types = append(types, t)
	}
	return types, nil
}

func (l *Loader) run(ctx context.Context, unit string, c Callable) error {
	target := unit
	if c.Name != "" {
		target = unit + "." + c.Name
	}
	return errors.Invoke(target, c.Tag.String(), func() error {
		return c.Fn(ctx)
	})
}

// finishLoading ends the LOADING phase of the current group: settings for
// newly staged modules, then PreInit2 callables, then factory products.
// A failing PreInit2 callable aborts the rest and reports aborted.
func (l *Loader) finishLoading(ctx context.Context) (aborted bool, err error) {
	ctx, span := l.spans.StartPhaseSpan(ctx, "finish_loading", l.group.Name)
	done := observability.TimedOperation()

	var errs []error
	if len(l.staged) > 0 {
		if err := l.loadSettings(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	calls := l.preInit2
	l.preInit2 = nil
	for _, d := range calls {
		if err := l.run(ctx, d.unit, d.call); err != nil {
			errs = append(errs, err)
			return true, l.endPhase(ctx, span, "finish_loading", done, errs)
		}
	}

	factories := l.factories
	l.factories = nil
	for _, d := range factories {
		var product any
		err := errors.Invoke(d.unit+"."+d.factory.Name, "factory", func() error {
			var err error
			product, err = d.factory.Produce()
			return err
		})
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := l.products.Register(d.factory.Name, product); err != nil {
			errs = append(errs, &errors.ConfigurationError{Unit: d.unit, Reason: "duplicate factory product", Err: err})
		}
	}

	return false, l.endPhase(ctx, span, "finish_loading", done, errs)
}

// loadSettings requests settings for every staged manager in one batch.
// Managers whose settings fail to load are dropped from the pending queue.
func (l *Loader) loadSettings(ctx context.Context) error {
	batch := l.staged
	l.staged = nil

	reqs := make([]settings.Request, len(batch))
	for i, s := range batch {
		reqs[i] = s.request
	}
	loaded, err := l.settings.LoadSettings(ctx, reqs)

	for _, s := range batch {
		m := s.manager
		values, ok := loaded[m.ID()]
		if !ok {
			l.pending.Remove(func(p *module.Manager) bool { return p == m })
			continue
		}
		m.SetSettings(values)
		if enabled, ok := values[settings.EnabledPath].(bool); ok {
			m.SetEnabled(enabled)
		}
	}
	return err
}

func (l *Loader) endPhase(ctx context.Context, span trace.Span, phase string, done func() time.Duration, errs []error) error {
	err := stderrors.Join(errs...)
	elapsed := done()
	l.metrics.RecordPhase(ctx, phase, l.group.Name, elapsed, err)
	l.spans.EndSpanWithError(span, err)
	if err != nil {
		observability.LogPhaseError(l.logger, phase, l.group.Name, err)
	} else {
		observability.LogPhaseComplete(l.logger, phase, l.group.Name, observability.Milliseconds(elapsed), l.live.Len())
	}
	return err
}

// InitializeAndFinishLoading ends LOADING, runs Init callables, commits every
// pending manager in FIFO order and registers deferred listeners, then
// returns to IDLE. Valid only in LOADING.
//
// If a PreInit2 callable fails the loader stays in LOADING. A failing Init callable aborts the phase: the loader returns to IDLE and
// pending managers stay queued for the next initialization. Per-module
// failures skip the module and are joined into the returned error.
func (l *Loader) InitializeAndFinishLoading(ctx context.Context) error {
	if l.phase != PhaseLoading {
		return l.illegal("InitializeAndFinishLoading", PhaseLoading)
	}

	var errs []error
	aborted, err := l.finishLoading(ctx)
	if aborted {
		return err
	}
	if err != nil {
		errs = append(errs, err)
	}

	l.phase = PhaseInitializing
	ctx, span := l.spans.StartPhaseSpan(ctx, PhaseInitializing.String(), l.group.Name)
	done := observability.TimedOperation()
	defer func() {
		l.phase = PhaseIdle
		l.group = GroupDeclaration{}
	}()

	calls := l.inits
	l.inits = nil
	for _, d := range calls {
		if err := l.run(ctx, d.unit, d.call); err != nil {
			errs = append(errs, err)
			return l.endPhase(ctx, span, PhaseInitializing.String(), done, errs)
		}
	}

	pending := l.pending
	l.pending = container.NewArray[*module.Manager](0)
	pending.Range(func(_ int, m *module.Manager) bool {
		if err := l.commit(ctx, m); err != nil {
			errs = append(errs, err)
		}
		return true
	})

	listeners := l.listeners
	l.listeners = nil
	for _, d := range listeners {
		if err := l.registerListener(d); err != nil {
			errs = append(errs, err)
		}
	}

	return l.endPhase(ctx, span, PhaseInitializing.String(), done, errs)
}

// commit moves m into the live registry and constructs its instance when
// its scope asks for one now.
func (l *Loader) commit(ctx context.Context, m *module.Manager) error {
	if !l.live.Put(m.ID(), m) {
		return errors.Configuration(m.String(), "duplicate module registration (capability %s)", m.Descriptor().Capability())
	}

	instantiate := m.AlwaysInstantiate() || (m.IsSingleton() && m.Enabled())
	if instantiate {
		if _, err := m.Instantiate(); err != nil {
			l.live.Delete(m.ID())
			return err
		}
	}
	if m.IsSingleton() && m.Enabled() {
		if err := l.wire(m); err != nil {
			l.live.Delete(m.ID())
			m.SetInstance(nil)
			return err
		}
	}
	if !m.IsSingleton() && m.Enabled() && l.sessions.active() {
		if err := l.sessions.attachModule(m); err != nil {
			l.live.Delete(m.ID())
			return err
		}
	}

	l.metrics.RecordModuleCommitted(ctx, m.Descriptor().PluginID())
	observability.LogModuleCommitted(l.logger, m.Descriptor().Name(), m.Descriptor().PluginID(), m.Instance() != nil)
	return nil
}

// wire registers the manager's instance for its subscribed events.
func (l *Loader) wire(m *module.Manager) error {
	types := m.SubscribedEvents()
	if len(types) == 0 {
		return nil
	}
	listener, ok := m.Instance().(event.Listener)
	if !ok {
		return errors.Configuration(m.String(), "instance %T subscribes to events but has no handlers", m.Instance())
	}
	if err := addAll(l.events, listener, types); err != nil {
		return err
	}
	l.wired[m.ID()] = listener
	return nil
}

// unwire removes the manager's instance from the event registry.
func (l *Loader) unwire(m *module.Manager) {
	listener, ok := l.wired[m.ID()]
	if !ok {
		return
	}
	for _, t := range m.SubscribedEvents() {
		l.events.RemoveListener(listener, t)
	}
	delete(l.wired, m.ID())
}

// addAll adds listener for every type, undoing earlier adds on failure.
func addAll(events *event.Registry, listener event.Listener, types []*event.Type) error {
	for i, t := range types {
		if err := events.AddListener(listener, t); err != nil {
			for _, added := range types[:i] {
				events.RemoveListener(listener, added)
			}
			return err
		}
	}
	return nil
}

func (l *Loader) registerListener(d deferredListener) error {
	if d.scope == module.ScopeSession {
		l.sessions.addListener(d)
		return nil
	}
	var listener event.Listener
	err := errors.Invoke(d.unit, "listener construction", func() error {
		listener = d.create()
		if listener == nil {
			return fmt.Errorf("constructor returned nil")
		}
		return nil
	})
	if err != nil {
		return err
	}
	if err := addAll(l.events, listener, d.accepts); err != nil {
		return &errors.ConfigurationError{Unit: d.unit, Reason: "cannot register listener", Err: err}
	}
	return nil
}

// SetEnabled toggles a live module, wiring its instance in or out of the
// event registry.
func (l *Loader) SetEnabled(id module.ID, enabled bool) error {
	m, ok := l.live.Get(id)
	if !ok {
		return errors.Configuration(id.String(), "module is not loaded")
	}
	if m.Enabled() == enabled {
		return nil
	}
	m.SetEnabled(enabled)

	if !m.IsSingleton() {
		if !l.sessions.active() {
			return nil
		}
		if enabled {
			return l.sessions.attachModule(m)
		}
		l.sessions.detachModule(m)
		return nil
	}

	if !enabled {
		l.unwire(m)
		return nil
	}
	if m.Instance() == nil {
		if _, err := m.Instantiate(); err != nil {
			m.SetEnabled(false)
			return err
		}
	}
	if err := l.wire(m); err != nil {
		m.SetEnabled(false)
		return err
	}
	return nil
}

// Module returns a live module by id.
func (l *Loader) Module(id module.ID) (*module.Manager, bool) {
	return l.live.Get(id)
}

// ModuleByCapability returns a live module by capability type.
func (l *Loader) ModuleByCapability(capability string) (*module.Manager, bool) {
	return l.live.GetBySecondary(capability)
}

// Modules returns the live modules in commit order.
func (l *Loader) Modules() []*module.Manager {
	return l.live.Values()
}

// Pending returns the managers waiting to be committed, in FIFO order.
func (l *Loader) Pending() []*module.Manager {
	return slices.Clone(l.pending.Slice())
}

// Instance returns the live instance of a module, or nil.
func (l *Loader) Instance(id module.ID) any {
	m, ok := l.live.Get(id)
	if !ok {
		return nil
	}
	return m.Instance()
}

// Product returns a registered factory product.
func (l *Loader) Product(name string) (any, bool) {
	return l.products.Get(name)
}

// Products returns the registered factory product names in registration order.
func (l *Loader) Products() []string {
	return l.products.Keys()
}

// Settings returns the settings service.
func (l *Loader) Settings() *settings.Service {
	return l.settings
}
