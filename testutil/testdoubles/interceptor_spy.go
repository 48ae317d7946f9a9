package testdoubles

import (
	"context"
	"fmt"
	"sync"

	"github.com/AntonStoeckl/dynamic-streams-eventpublisher-go/eventpublisher"
)

const (
	HookConstructed = "constructed"
	HookBeforeSend  = "before_send"
	HookAfterSend   = "after_send"
	HookOnError     = "on_error"
	HookClosed      = "closed"
)

// JournalEntry is one recorded interceptor hook invocation.
type JournalEntry struct {
	Interceptor string
	Hook        string
	ScopeID     string
	MessageID   string
	Err         error
	Ctx         context.Context
}

// InterceptorJournal records hook invocations of RecordingInterceptors in invocation order.
// It is safe for concurrent use.
type InterceptorJournal struct {
	entries []JournalEntry
	mu      sync.Mutex
}

// NewInterceptorJournal creates an empty InterceptorJournal.
func NewInterceptorJournal() *InterceptorJournal {
	return &InterceptorJournal{entries: make([]JournalEntry, 0)}
}

func (j *InterceptorJournal) record(entry JournalEntry) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.entries = append(j.entries, entry)
}

// Entries returns a copy of all recorded entries.
func (j *InterceptorJournal) Entries() []JournalEntry {
	j.mu.Lock()
	defer j.mu.Unlock()

	return append([]JournalEntry(nil), j.entries...)
}

// Calls returns "<interceptor>.<hook>" for every entry, optionally filtered by hook.
func (j *InterceptorJournal) Calls(hooks ...string) []string {
	calls := make([]string, 0)

	for _, entry := range j.Entries() {
		if len(hooks) > 0 && !contains(hooks, entry.Hook) {
			continue
		}

		calls = append(calls, entry.Interceptor+"."+entry.Hook)
	}

	return calls
}

// Count returns the number of entries for the given hook.
func (j *InterceptorJournal) Count(hook string) int {
	return len(j.Calls(hook))
}

// Reset clears all entries.
func (j *InterceptorJournal) Reset() {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.entries = j.entries[:0]
}

func contains(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}

	return false
}

// RecordingInterceptor is an eventpublisher.Interceptor that writes every hook call to an InterceptorJournal.
// Hooks can be configured to fail or to mutate the envelope.
type RecordingInterceptor struct {
	name         string
	scopeID      string
	journal      *InterceptorJournal
	beforeErr    error
	afterErr     error
	onErrorErr   error
	beforePanic  any
	onErrorPanic any
	headerKey    string
	headerValue  string
	beforeCalled bool
}

// RecordingOption configures a RecordingInterceptor.
type RecordingOption func(*RecordingInterceptor)

// FailingBeforeSend makes BeforeSend return err.
func FailingBeforeSend(err error) RecordingOption {
	return func(i *RecordingInterceptor) { i.beforeErr = err }
}

// FailingAfterSend makes AfterSend return err.
func FailingAfterSend(err error) RecordingOption {
	return func(i *RecordingInterceptor) { i.afterErr = err }
}

// FailingOnError makes OnError return err.
func FailingOnError(err error) RecordingOption {
	return func(i *RecordingInterceptor) { i.onErrorErr = err }
}

// PanickingBeforeSend makes BeforeSend panic with value.
func PanickingBeforeSend(value any) RecordingOption {
	return func(i *RecordingInterceptor) { i.beforePanic = value }
}

// PanickingOnError makes OnError panic with value.
func PanickingOnError(value any) RecordingOption {
	return func(i *RecordingInterceptor) { i.onErrorPanic = value }
}

// SettingHeader makes BeforeSend set an envelope header.
func SettingHeader(key, value string) RecordingOption {
	return func(i *RecordingInterceptor) {
		i.headerKey = key
		i.headerValue = value
	}
}

// RecordingConstructor returns a constructor that creates a fresh RecordingInterceptor per scope.
func RecordingConstructor(name string, journal *InterceptorJournal, options ...RecordingOption) eventpublisher.InterceptorConstructor {
	return func(scope eventpublisher.Scope) (eventpublisher.Interceptor, error) {
		interceptor := &RecordingInterceptor{
			name:    name,
			scopeID: scope.ID(),
			journal: journal,
		}

		for _, option := range options {
			option(interceptor)
		}

		journal.record(JournalEntry{Interceptor: name, Hook: HookConstructed, ScopeID: scope.ID()})

		return interceptor, nil
	}
}

// FailingConstructor returns a constructor that always fails with err.
func FailingConstructor(err error) eventpublisher.InterceptorConstructor {
	return func(eventpublisher.Scope) (eventpublisher.Interceptor, error) {
		return nil, err
	}
}

func (i *RecordingInterceptor) BeforeSend(ctx context.Context, _ eventpublisher.Event, envelope *eventpublisher.Envelope) error {
	if i.beforeCalled {
		return fmt.Errorf("interceptor %s reused across publish calls", i.name)
	}

	i.beforeCalled = true
	i.journal.record(JournalEntry{Interceptor: i.name, Hook: HookBeforeSend, ScopeID: i.scopeID, MessageID: envelope.MessageID, Ctx: ctx})

	if i.beforePanic != nil {
		panic(i.beforePanic)
	}

	if i.headerKey != "" {
		envelope.SetHeader(i.headerKey, i.headerValue)
	}

	return i.beforeErr
}

func (i *RecordingInterceptor) AfterSend(ctx context.Context, _ eventpublisher.Event, envelope *eventpublisher.Envelope) error {
	i.journal.record(JournalEntry{Interceptor: i.name, Hook: HookAfterSend, ScopeID: i.scopeID, MessageID: envelope.MessageID, Ctx: ctx})

	return i.afterErr
}

func (i *RecordingInterceptor) OnError(ctx context.Context, _ eventpublisher.Event, envelope *eventpublisher.Envelope, err error) error {
	i.journal.record(JournalEntry{Interceptor: i.name, Hook: HookOnError, ScopeID: i.scopeID, MessageID: envelope.MessageID, Err: err, Ctx: ctx})

	if i.onErrorPanic != nil {
		panic(i.onErrorPanic)
	}

	return i.onErrorErr
}

// Close records the release of the interceptor by its scope.
func (i *RecordingInterceptor) Close() error {
	i.journal.record(JournalEntry{Interceptor: i.name, Hook: HookClosed, ScopeID: i.scopeID})

	return nil
}
