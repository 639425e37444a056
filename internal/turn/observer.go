package turn

import "github.com/mediguide/assistant/pkg/model"

// Observer receives the visible state changes of a turn, in order: the user
// message, the pending placeholder, loading and partial updates, then exactly
// one of OnResolved or OnFailed. Callbacks run on the submitting goroutine.
type Observer interface {
	OnUserMessage(msg model.Message)
	OnPending(msg model.Message)
	OnPartial(id, text string)
	OnLoading(loading bool)
	OnResolved(msg model.Message)
	OnFailed(id string, err error)
}

// ObserverFuncs adapts optional functions to an Observer
type ObserverFuncs struct {
	UserMessage func(model.Message)
	Pending     func(model.Message)
	Partial     func(id, text string)
	Loading     func(bool)
	Resolved    func(model.Message)
	Failed      func(id string, err error)
}

var _ Observer = ObserverFuncs{}

func (f ObserverFuncs) OnUserMessage(msg model.Message) {
	if f.UserMessage != nil {
		f.UserMessage(msg)
	}
}

func (f ObserverFuncs) OnPending(msg model.Message) {
	if f.Pending != nil {
		f.Pending(msg)
	}
}

func (f ObserverFuncs) OnPartial(id, text string) {
	if f.Partial != nil {
		f.Partial(id, text)
	}
}

func (f ObserverFuncs) OnLoading(loading bool) {
	if f.Loading != nil {
		f.Loading(loading)
	}
}

func (f ObserverFuncs) OnResolved(msg model.Message) {
	if f.Resolved != nil {
		f.Resolved(msg)
	}
}

func (f ObserverFuncs) OnFailed(id string, err error) {
	if f.Failed != nil {
		f.Failed(id, err)
	}
}
