package startup

import "context"

// Func adapts a pair of functions into a Dependency
type Func struct {
	Name      string
	Upstream  []string
	StartFunc func(ctx context.Context) error
	StopFunc  func(ctx context.Context) error
}

func (f *Func) GetName() string {
	return f.Name
}

func (f *Func) DependsOn() []string {
	return f.Upstream
}

func (f *Func) Start(ctx context.Context) error {
	if f.StartFunc == nil {
		return nil
	}
	return f.StartFunc(ctx)
}

func (f *Func) Stop(ctx context.Context) error {
	if f.StopFunc == nil {
		return nil
	}
	return f.StopFunc(ctx)
}
