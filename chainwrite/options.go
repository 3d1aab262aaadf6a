package chainwrite

// Observer is told when each write of a chain starts and completes.
// Calls for one chain never overlap.
type Observer interface {
	WriteStarted(stage Stage)
	WriteCompleted(stage Stage, err error)
}

type nopObserver struct{}

func (nopObserver) WriteStarted(Stage)          {}
func (nopObserver) WriteCompleted(Stage, error) {}

type Option func(*options)

type options struct {
	exec   Executor
	obs    Observer
	onOpen func(*AsyncFile)
}

// WithExecutor runs the writes on exec instead of fresh goroutines.
func WithExecutor(exec Executor) Option { return func(o *options) { o.exec = exec } }

func WithObserver(obs Observer) Option {
	return func(o *options) {
		if obs != nil {
			o.obs = obs
		}
	}
}

func newOptions(opts []Option) options {
	o := options{obs: nopObserver{}}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
