// Package notify routes event batches from the bus to connections held by
// this instance.
package notify

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/pairsync/internal/common"
	"github.com/dmitrijs2005/pairsync/internal/logging"
	"github.com/dmitrijs2005/pairsync/internal/server/events"
	"github.com/dmitrijs2005/pairsync/internal/server/metrics"
	"github.com/dmitrijs2005/pairsync/internal/server/models"
	"github.com/dmitrijs2005/pairsync/internal/server/presence"
)

// Client method names pushed over the realtime connection.
const (
	MethodGroupSendFullInfo   = "Client_GroupSendFullInfo"
	MethodGroupPairJoined     = "Client_GroupPairJoined"
	MethodUserSendOnline      = "Client_UserSendOnline"
	MethodExpireTemporaryUser = "Client_ExpireTemporaryUser"
)

// Sink delivers a push to a locally connected user. It is a no-op when the
// user has no connection here.
type Sink interface {
	PushToUser(ctx context.Context, uid, method string, payload any) error
}

// OnlineUser tells a client that a pair is online and which connection
// carries it.
type OnlineUser struct {
	User  models.Identity `json:"user"`
	Ident string          `json:"ident"`
}

// Router consumes batches and pushes each event to its target when the
// target is connected to this instance. Every instance receives every batch.
type Router struct {
	instanceID string
	presence   presence.Directory
	sink       Sink
	logger     logging.Logger
}

func NewRouter(instanceID string, dir presence.Directory, sink Sink, l logging.Logger) *Router {
	return &Router{
		instanceID: instanceID,
		presence:   dir,
		sink:       sink,
		logger:     l.With("module", "notification_router", "instance", instanceID),
	}
}

// Run subscribes to the bus until ctx is done.
func (r *Router) Run(ctx context.Context, sub events.Subscriber) error {
	r.logger.Info(ctx, "notification router started")
	return sub.Subscribe(ctx, r.Handle)
}

type decoded struct {
	env     events.Envelope
	payload any
}

// Handle dispatches a batch in order. The batch is validated as a whole
// first, so an unknown or undecodable event rejects it before anything is
// pushed.
func (r *Router) Handle(ctx context.Context, batch events.Batch) error {
	items := make([]decoded, 0, len(batch.Events))
	for _, env := range batch.Events {
		p, err := decodePayload(env)
		if err != nil {
			return err
		}
		items = append(items, decoded{env: env, payload: p})
	}

	for _, it := range items {
		if err := r.dispatch(ctx, it); err != nil {
			metrics.EventsDispatched.WithLabelValues(string(it.env.Type), "error").Inc()
			return fmt.Errorf("dispatch %s to %s: %w", it.env.Type, it.env.TargetUID, err)
		}
	}
	return nil
}

func decodePayload(env events.Envelope) (any, error) {
	switch env.Type {
	case events.KindGroupFullInfo:
		var p events.GroupFullInfo
		if err := env.Decode(&p); err != nil {
			return nil, err
		}
		return p, nil
	case events.KindPairJoined:
		var p events.PairJoined
		if err := env.Decode(&p); err != nil {
			return nil, err
		}
		return p, nil
	case events.KindOnlineNotification:
		var p events.OnlineNotification
		if err := env.Decode(&p); err != nil {
			return nil, err
		}
		if p.UserUID == "" || p.PairUID == "" {
			return nil, fmt.Errorf("%w: online notification without both parties", common.ErrMalformedEvent)
		}
		return p, nil
	case events.KindUserExpired:
		var p events.UserExpired
		if err := env.Decode(&p); err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("%w: %q", common.ErrUnknownEventType, env.Type)
	}
}

func (r *Router) dispatch(ctx context.Context, it decoded) error {
	switch p := it.payload.(type) {
	case events.GroupFullInfo:
		return r.pushIfLocal(ctx, it.env.Type, it.env.TargetUID, MethodGroupSendFullInfo, p)
	case events.PairJoined:
		return r.pushIfLocal(ctx, it.env.Type, it.env.TargetUID, MethodGroupPairJoined, p)
	case events.UserExpired:
		return r.pushIfLocal(ctx, it.env.Type, it.env.TargetUID, MethodExpireTemporaryUser, p)
	case events.OnlineNotification:
		return r.dispatchOnline(ctx, p)
	}
	return fmt.Errorf("%w: %q", common.ErrUnknownEventType, it.env.Type)
}

// local looks up uid and reports whether its connection lives here.
func (r *Router) local(ctx context.Context, uid string) (presence.Entry, bool, bool, error) {
	e, ok, err := r.presence.Lookup(ctx, uid)
	if err != nil || !ok {
		return presence.Entry{}, false, false, err
	}
	return e, true, e.Instance == r.instanceID, nil
}

func (r *Router) pushIfLocal(ctx context.Context, kind events.Kind, uid, method string, payload any) error {
	_, _, here, err := r.local(ctx, uid)
	if err != nil {
		return err
	}
	if !here {
		metrics.EventsDispatched.WithLabelValues(string(kind), "noop").Inc()
		return nil
	}
	if err := r.sink.PushToUser(ctx, uid, method, payload); err != nil {
		return err
	}
	metrics.EventsDispatched.WithLabelValues(string(kind), "pushed").Inc()
	return nil
}

// dispatchOnline pushes only when both parties are online somewhere; each
// side held by this instance learns about the other.
func (r *Router) dispatchOnline(ctx context.Context, p events.OnlineNotification) error {
	kind := string(events.KindOnlineNotification)

	self, selfOnline, selfHere, err := r.local(ctx, p.UserUID)
	if err != nil {
		return err
	}
	pair, pairOnline, pairHere, err := r.local(ctx, p.PairUID)
	if err != nil {
		return err
	}
	if !selfOnline || !pairOnline || (!selfHere && !pairHere) {
		metrics.EventsDispatched.WithLabelValues(kind, "noop").Inc()
		return nil
	}

	if selfHere {
		if err := r.sink.PushToUser(ctx, p.UserUID, MethodUserSendOnline, OnlineUser{User: p.Pair, Ident: pair.Ident}); err != nil {
			return err
		}
	}
	if pairHere {
		if err := r.sink.PushToUser(ctx, p.PairUID, MethodUserSendOnline, OnlineUser{User: p.Self, Ident: self.Ident}); err != nil {
			return err
		}
	}
	metrics.EventsDispatched.WithLabelValues(kind, "pushed").Inc()
	r.logger.Debug(ctx, "pair online pushed", "uid", p.UserUID, "pair", p.PairUID)
	return nil
}
