// Package gamestate owns the Balloon Bomb documents replicated between
// meeting participants and the only mutation entry points for them.
package gamestate

import (
	"context"
	"fmt"
	"sync"

	"github.com/bloops-games/balloonbomb/internal/logging"
	"github.com/bloops-games/balloonbomb/internal/replica"
	"github.com/valyala/fastrand"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const connectKey = "connect"

type Config struct {
	Joiner replica.Joiner

	// Rand returns a uniform value in [0, n). Defaults to fastrand.
	Rand func(n uint32) uint32
}

func New(config Config) *Service {
	rnd := config.Rand
	if rnd == nil {
		rnd = fastrand.Uint32n
	}

	return &Service{
		joiner:     config.Joiner,
		rand:       rnd,
		logger:     logging.DefaultLogger().Named("gamestate.Service"),
		roster:     newDocument(replica.SlotRoster, DefaultRoster),
		turnWindow: newDocument(replica.SlotTurnWindow, DefaultTurnWindow),
		blowConfig: newDocument(replica.SlotBlowConfig, DefaultBlowConfig),
		restartLog: newDocument(replica.SlotRestartLog, DefaultRestartLog),
		phase:      newDocument(replica.SlotPhase, defaultPhaseDoc),
	}
}

type Service struct {
	joiner replica.Joiner
	rand   func(n uint32) uint32

	connecting singleflight.Group

	mtx      sync.RWMutex
	session  replica.Session
	releases []func()
	logger   *zap.SugaredLogger

	disconnects replica.Listeners[func()]

	roster     *document[Roster]
	turnWindow *document[TurnWindow]
	blowConfig *document[BlowConfig]
	restartLog *document[RestartLog]
	phase      *document[phaseDoc]
}

// Connect joins the game container once. Concurrent callers share a single
// attempt; after a failure the service stays disconnected and Connect may be
// called again.
func (s *Service) Connect(ctx context.Context) error {
	if s.Connected() {
		return nil
	}

	_, err, _ := s.connecting.Do(connectKey, func() (interface{}, error) {
		if s.Connected() {
			return nil, nil
		}
		return nil, s.connect(ctx)
	})

	return err
}

func (s *Service) connect(ctx context.Context) error {
	logger := logging.FromContext(ctx).Named("gamestate.Service")
	logger.Debugf("joining game container")

	session, err := s.joiner.Join(ctx)
	if err != nil {
		logger.Errorf("join game container: %v", err)
		return fmt.Errorf("%w: %v", ErrConnect, err)
	}

	releases := []func(){
		s.roster.bind(session, logger),
		s.turnWindow.bind(session, logger),
		s.blowConfig.bind(session, logger),
		s.restartLog.bind(session, logger),
		s.phase.bind(session, logger),
	}

	// Listeners first; load then reads whatever is current.
	s.roster.load(session, logger)
	s.turnWindow.load(session, logger)
	s.blowConfig.load(session, logger)
	s.restartLog.load(session, logger)
	s.phase.load(session, logger)

	s.mtx.Lock()
	s.session = session
	s.releases = releases
	s.logger = logger
	s.mtx.Unlock()

	go s.watch(session)

	logger.Infof("joined game container, phase %s, %d players", s.Phase(), len(s.Roster().People))
	return nil
}

// watch forgets session once the transport drops it, so Connect can join
// again. A session replaced or closed through Close is left alone.
func (s *Service) watch(session replica.Session) {
	<-session.Done()

	s.mtx.Lock()
	if s.session != session {
		s.mtx.Unlock()
		return
	}
	releases := s.releases
	s.session, s.releases = nil, nil
	logger := s.logger
	s.mtx.Unlock()

	for _, release := range releases {
		release()
	}
	logger.Warnf("lost the game container, call Connect to rejoin")
	for _, fn := range s.disconnects.Snapshot() {
		fn()
	}
}

// OnDisconnect registers fn to run when the container connection drops
// without Close being called.
func (s *Service) OnDisconnect(fn func()) *Subscription {
	return &Subscription{release: s.disconnects.Add(fn)}
}

func (s *Service) Connected() bool {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return s.session != nil
}

// Close leaves the container and drops slot listeners. Subscribers stay
// registered and resume after a new Connect.
func (s *Service) Close() error {
	s.mtx.Lock()
	session, releases := s.session, s.releases
	s.session, s.releases = nil, nil
	s.mtx.Unlock()

	if session == nil {
		return nil
	}
	for _, release := range releases {
		release()
	}
	if err := session.Close(); err != nil {
		return fmt.Errorf("close session: %w", err)
	}
	return nil
}

func (s *Service) store() (replica.Session, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	if s.session == nil {
		return nil, ErrNotConnected
	}
	return s.session, nil
}

func (s *Service) log() *zap.SugaredLogger {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return s.logger
}

// Presence exposes the container's presence channel.
func (s *Service) Presence() (replica.PresenceChannel, error) {
	session, err := s.store()
	if err != nil {
		return nil, err
	}
	return session.Presence(), nil
}

// Events exposes the container's broadcast channel.
func (s *Service) Events() (replica.EventChannel, error) {
	session, err := s.store()
	if err != nil {
		return nil, err
	}
	return session.Events(), nil
}

func (s *Service) Roster() Roster         { return s.roster.get() }
func (s *Service) TurnWindow() TurnWindow { return s.turnWindow.get() }
func (s *Service) BlowConfig() BlowConfig { return s.blowConfig.get() }
func (s *Service) RestartLog() RestartLog { return s.restartLog.get() }
func (s *Service) Phase() Phase           { return s.phase.get().Phase }

func (s *Service) SubscribeRoster(fn func(Roster)) *Subscription {
	return s.roster.subscribe(fn)
}

func (s *Service) SubscribeTurnWindow(fn func(TurnWindow)) *Subscription {
	return s.turnWindow.subscribe(fn)
}

func (s *Service) SubscribeBlowConfig(fn func(BlowConfig)) *Subscription {
	return s.blowConfig.subscribe(fn)
}

func (s *Service) SubscribeRestartLog(fn func(RestartLog)) *Subscription {
	return s.restartLog.subscribe(fn)
}

func (s *Service) SubscribePhase(fn func(Phase)) *Subscription {
	return s.phase.subscribe(func(d phaseDoc) { fn(d.Phase) })
}
