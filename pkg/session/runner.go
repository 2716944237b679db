package session

import (
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"

	"github.com/sidkik/cargo-remote/pkg/errors"
	"github.com/sidkik/cargo-remote/pkg/transfer"
)

// State is the progress of a Runner.
type State int

const (
	// Idle is the state before Run is called.
	Idle State = iota
	SyncingOut
	Building
	RetrievingArtifacts
	RetrievingLock

	// Done means that every phase ran. The build itself may have failed.
	Done

	// Aborted means that a phase failed and the remaining phases were
	// skipped.
	Aborted
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case SyncingOut:
		return "SyncingOut"
	case Building:
		return "Building"
	case RetrievingArtifacts:
		return "RetrievingArtifacts"
	case RetrievingLock:
		return "RetrievingLock"
	case Done:
		return "Done"
	case Aborted:
		return "Aborted"
	default:
		return "Unknown"
	}
}

// PhaseResult records how one phase of a build went.
type PhaseResult struct {
	State    State
	Duration time.Duration
	Err      error
}

// Runner executes build sessions. Phases run strictly one after the other.
type Runner struct {
	Sync  FileSync
	Shell RemoteShell

	// Log defaults to the standard logrus logger.
	Log *logrus.Logger

	// Clock times the phases. It defaults to the real clock.
	Clock clockwork.Clock

	state  State
	phases []PhaseResult
}

// State returns the current state of the runner.
func (r *Runner) State() State {
	return r.state
}

// Phases returns the results of the phases that have run so far.
func (r *Runner) Phases() []PhaseResult {
	return r.phases
}

// Run builds `s`. The returned error carries the process exit code (see
// errors.ExitCode): each phase has its own code, and a failed remote build
// passes its exit status through once the retrieval phases succeed.
func (r *Runner) Run(s Session, opts Options) error {
	log := r.Log
	if log == nil {
		log = logrus.StandardLogger()
	}

	plans := transfer.Build(s.Layout, s.Target, opts.transferOptions())

	log.WithField("remote", s.Target.String()).Info("Transferring sources to build server")
	if err := r.phase(SyncingOut, func() error { return r.Sync.Sync(plans.Outbound) }); err != nil {
		return r.abort(err, "transfer sources", errors.ExitTransferOut)
	}

	command := RemoteCommand(s, opts)
	log.WithField("command", command).Info("Starting build process")

	var buildErr error
	err := r.phase(Building, func() error {
		code, err := r.Shell.Execute(s.Target, command, true)
		if err != nil {
			return err
		}
		if code != 0 {
			buildErr = errors.RemoteBuildError{Code: code}
		}
		return nil
	})
	if err != nil {
		return r.abort(err, "run build command", errors.ExitRemoteCommand)
	}

	if buildErr != nil {
		log.WithError(buildErr).Warn("Remote build failed")
		r.phases[len(r.phases)-1].Err = buildErr
	}

	if plans.Artifacts != nil {
		log.Info("Transferring artifacts back to client")
		if err := r.phase(RetrievingArtifacts, func() error { return r.Sync.Sync(*plans.Artifacts) }); err != nil {
			return r.abort(err, "transfer artifacts", errors.ExitTransferBack)
		}
	}

	if plans.Lock != nil {
		log.Info("Transferring Cargo.lock back to client")
		if err := r.phase(RetrievingLock, func() error { return r.Sync.Sync(*plans.Lock) }); err != nil {
			return r.abort(err, "transfer Cargo.lock", errors.ExitLockTransfer)
		}
	}

	r.state = Done
	return buildErr
}

func (r *Runner) phase(state State, fn func() error) error {
	clock := r.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	r.state = state
	start := clock.Now()
	err := fn()
	r.phases = append(r.phases, PhaseResult{
		State:    state,
		Duration: clock.Since(start),
		Err:      err,
	})
	return err
}

func (r *Runner) abort(err error, context string, code int) error {
	r.state = Aborted
	return errors.WithExitCode(errors.WithContext(err, context), code)
}
