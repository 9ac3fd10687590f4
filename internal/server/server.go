// Package server implements the server core of spec.md §4.6: the
// connected-endpoint table, the global peer queue, the tick loop, the
// optional world-frame loop, connection acceptance, and the router.
// Grounded on original_source/netbound/app/server.py's ServerApp.
package server

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"runtime/debug"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/nextlevelbuilder/tickforge/internal/endpoint"
	"github.com/nextlevelbuilder/tickforge/internal/packet"
	"github.com/nextlevelbuilder/tickforge/internal/queue"
	"github.com/nextlevelbuilder/tickforge/internal/state"
	"github.com/nextlevelbuilder/tickforge/internal/world"
)

// Config bundles the host/port/TLS/rate settings the server binds with.
// The ticks-per-second and world-fps rates are passed separately to Run and
// ProcessWorld (mirroring ServerApp.run/process_game_objects taking them as
// arguments rather than constructor fields).
type Config struct {
	Host               string
	Port               int
	TLS                *tls.Config
	AcceptRatePerSecond float64 // 0 disables accept-rate limiting
}

// Server owns the connected-endpoint table, the global peer queue, and the
// tick/accept/world-frame loops. Safe fields are only ever touched from
// the accept/tick/frame goroutines plus the mutex-guarded endpoint map,
// per spec.md §5.
type Server struct {
	cfg      Config
	registry *packet.Registry
	codec    *packet.Codec
	world    *world.Set
	store    state.StoreFactory
	log      *slog.Logger
	tracer   trace.Tracer

	mu        sync.RWMutex
	endpoints map[packet.PID]*endpoint.Endpoint

	globalPeers *queue.Queue[packet.Packet]

	initial  state.Factory
	listener net.Listener
	upgrader websocket.Upgrader
	limiter  *rate.Limiter
}

// New builds a Server bound to registry (for decoding inbound frames) and
// store (the persistent-store session factory handed to every state).
func New(cfg Config, registry *packet.Registry, store state.StoreFactory, log *slog.Logger) *Server {
	s := &Server{
		cfg:         cfg,
		registry:    registry,
		codec:       packet.NewCodec(registry),
		world:       world.NewSet(),
		store:       store,
		log:         log,
		tracer:      tracer(),
		endpoints:   make(map[packet.PID]*endpoint.Endpoint),
		globalPeers: queue.New[packet.Packet](),
		upgrader:    websocket.Upgrader{ReadBufferSize: 4096, WriteBufferSize: 4096},
	}
	if cfg.AcceptRatePerSecond > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.AcceptRatePerSecond), 1)
	}
	return s
}

// Registry returns the server's packet registry, for callers to register
// user-defined kinds before Start.
func (s *Server) Registry() *packet.Registry { return s.registry }

// World returns the shared world object set, for AddWorldObject-style
// setup before Start.
func (s *Server) World() *world.Set { return s.world }

// AddWorldObject inserts obj into the world object set.
func (s *Server) AddWorldObject(obj world.Object) {
	s.world.Add(obj)
}

// EnqueuePeerPacket pushes p directly onto the global peer queue, for
// world objects that are not endpoints but still need to reach connected
// peers (e.g. a roaming NPC announcing its position every frame).
func (s *Server) EnqueuePeerPacket(p packet.Packet) {
	s.globalPeers.Push(p)
}

// AddNPC creates a server-owned endpoint with no transport and starts it
// in initial, matching spec.md §4.8.
func (s *Server) AddNPC(ctx context.Context, initial state.Factory) (packet.PID, error) {
	id := packet.NewPID()
	ep := endpoint.New(id, endpoint.NPC, nil, s.codec, s.world, s.store, s.disconnect, s.log)
	s.mu.Lock()
	s.endpoints[id] = ep
	s.mu.Unlock()
	if err := ep.Start(ctx, initial); err != nil {
		s.mu.Lock()
		delete(s.endpoints, id)
		s.mu.Unlock()
		return packet.PID{}, err
	}
	return id, nil
}

// Start binds the listener and begins accepting Player connections,
// blocking until ctx is cancelled or the listener fails fatally (spec.md
// §7 class 3: "Accept-loop raises are fatal").
func (s *Server) Start(ctx context.Context, initial state.Factory) error {
	s.initial = initial

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("server: listen %s: %w", addr, err)
	}
	if s.cfg.TLS != nil {
		ln = tls.NewListener(ln, s.cfg.TLS)
	}
	s.listener = ln
	s.log.Info("server listening", "addr", addr)

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleConnection)
	httpServer := &http.Server{Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	if err := httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: serve: %w", err)
	}
	return nil
}

func (s *Server) handleConnection(w http.ResponseWriter, r *http.Request) {
	if s.limiter != nil && !s.limiter.Allow() {
		http.Error(w, "too many connection attempts", http.StatusTooManyRequests)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error("websocket upgrade failed", "error", err)
		return
	}

	id := packet.NewPID()
	ep := endpoint.New(id, endpoint.Player, endpoint.NewWSTransport(conn), s.codec, s.world, s.store, s.disconnect, s.log)

	s.mu.Lock()
	s.endpoints[id] = ep
	s.mu.Unlock()

	if err := ep.Start(r.Context(), s.initial); err != nil {
		s.log.Error("initial state transition failed", "pid", id.String(), "error", err)
		s.disconnect(ep, "Initial transition failed")
	}
}

// Run executes the tick loop forever at ticksPerSecond, until ctx is
// cancelled. Each iteration pops at most one outbound packet per endpoint
// queue, routes the global peer queue, then drains every endpoint's
// inbound queue, per spec.md §4.6.
func (s *Server) Run(ctx context.Context, ticksPerSecond int) error {
	interval := time.Second / time.Duration(ticksPerSecond)
	s.log.Info("running tick loop", "ticks_per_second", ticksPerSecond)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		start := time.Now()
		s.safeTick(ctx)
		elapsed := time.Since(start)

		if diff := interval - elapsed; diff > 0 {
			time.Sleep(diff)
		} else if diff < 0 {
			s.log.Warn("tick time budget exceeded", "over_by", -diff)
		}
	}
}

// safeTick runs one tick, recovering and logging any panic so a single bad
// tick never takes down the loop (spec.md §7 class 3).
func (s *Server) safeTick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("tick panicked", "recovered", r, "stack", string(debug.Stack()))
		}
	}()

	tickCtx, span := s.tracer.Start(ctx, "tickforge.tick")
	defer span.End()

	s.tick(tickCtx)
}

func (s *Server) tick(ctx context.Context) {
	s.mu.RLock()
	snapshot := make([]*endpoint.Endpoint, 0, len(s.endpoints))
	for _, ep := range s.endpoints {
		snapshot = append(snapshot, ep)
	}
	s.mu.RUnlock()

	for _, ep := range snapshot {
		if p, ok := ep.PopOutboundPeer(); ok {
			s.globalPeers.Push(p)
		}
		// NPC endpoints have an outbound-to-client queue but it is never
		// drained here (spec.md §9 open question (a)) — its contents are
		// simply left unused.
		if ep.Kind() == endpoint.Player {
			if p, ok := ep.PopOutboundClient(); ok {
				if err := ep.SendToClient(ctx, p); err != nil {
					s.log.Error("send to client failed", "pid", ep.ID().String(), "error", err)
					s.disconnect(ep, "Connection closed")
				}
			}
		}
	}

	s.drainGlobalQueue(ctx)

	for _, ep := range snapshot {
		ep.ProcessInbound()
	}
}

func (s *Server) drainGlobalQueue(ctx context.Context) {
	_, span := s.tracer.Start(ctx, "tickforge.route")
	defer span.End()

	s.mu.RLock()
	endpoints := make(map[packet.PID]*endpoint.Endpoint, len(s.endpoints))
	for id, ep := range s.endpoints {
		endpoints[id] = ep
	}
	s.mu.RUnlock()

	routed := 0
	for {
		p, ok := s.globalPeers.Pop()
		if !ok {
			break
		}
		route(p, endpoints, s.log)
		routed++
	}
	span.SetAttributes(attribute.Int("tickforge.routed_count", routed))
}

// ProcessWorld runs the world-frame loop forever at gameFPS, until ctx is
// cancelled. Each frame updates a snapshot of the world object set and
// reaps freed objects, per spec.md §4.6.
func (s *Server) ProcessWorld(ctx context.Context, gameFPS int) error {
	frame := time.Second / time.Duration(gameFPS)
	delta := frame
	s.log.Info("running world-frame loop", "game_fps", gameFPS)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		start := time.Now()
		for _, obj := range s.world.Snapshot() {
			obj.Update(delta.Seconds())
		}
		s.world.ReapFreed()
		elapsed := time.Since(start)

		if diff := frame - elapsed; diff > 0 {
			time.Sleep(diff)
			delta = frame
		} else {
			if diff < 0 {
				s.log.Warn("world-frame time budget exceeded", "over_by", -diff)
			}
			delta = time.Since(start)
		}
	}
}

// disconnect tears down ep: calls its state's OnDisconnect hook, removes
// it from the connected-endpoint table, and broadcasts a Disconnect packet
// (spec.md §4.6 "Disconnect").
func (s *Server) disconnect(ep *endpoint.Endpoint, reason string) {
	s.log.Info("disconnecting endpoint", "pid", ep.ID().String(), "reason", reason)

	if inst := ep.State(); inst != nil {
		inst.OnDisconnect()
	}

	s.mu.Lock()
	delete(s.endpoints, ep.ID())
	s.mu.Unlock()

	ep.Close()

	s.globalPeers.Push(packet.NewDisconnect(ep.ID(), reason))
}

// Serve runs the accept loop, tick loop, and world-frame loop together
// under one errgroup: a fatal error in any one of them cancels the others
// and is returned. gameFPS of 0 skips the world-frame loop entirely.
func (s *Server) Serve(ctx context.Context, initial state.Factory, ticksPerSecond, gameFPS int) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := s.Start(ctx, initial); err != nil {
			return fmt.Errorf("accept loop: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		if err := s.Run(ctx, ticksPerSecond); err != nil && ctx.Err() == nil {
			return fmt.Errorf("tick loop: %w", err)
		}
		return nil
	})

	if gameFPS > 0 {
		g.Go(func() error {
			if err := s.ProcessWorld(ctx, gameFPS); err != nil && ctx.Err() == nil {
				return fmt.Errorf("world-frame loop: %w", err)
			}
			return nil
		})
	}

	err := g.Wait()
	if ctx.Err() != nil {
		return nil
	}
	return err
}
