package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/google/uuid"

	"threadview/internal/models"
	"threadview/internal/store"
	"threadview/internal/utils"
)

// Message types for the store actor
type (
	DispatchMsg struct {
		Action store.Action
	}

	DispatchResult struct {
		Err error
	}

	GetSnapshotMsg struct{}

	GetUserMsg struct{}

	GetCountsMsg struct{}

	// SubscribeMsg registers a listener that runs on the actor after every
	// applied action. It must not block or call back into the engine.
	SubscribeMsg struct {
		Listener func(store.ChangeSet)
	}

	UnsubscribeMsg struct {
		ID uuid.UUID
	}
)

// Counts summarizes the page for health checks.
type Counts struct {
	NumPosts          int `json:"numPosts"`
	NumPostsExclTitle int `json:"numPostsExclTitle"`
	NumTopLevel       int `json:"numTopLevelComments"`
}

// StoreActor owns the page store. The actor mailbox serializes every
// dispatch and read, so the store itself needs no locking.
type StoreActor struct {
	store   *store.Store
	metrics *utils.MetricsCollector
	logger  *slog.Logger
}

func NewStoreActor(st *store.Store, metrics *utils.MetricsCollector, logger *slog.Logger) actor.Actor {
	return &StoreActor{
		store:   st,
		metrics: metrics,
		logger:  logger,
	}
}

func (a *StoreActor) Receive(context actor.Context) {
	switch msg := context.Message().(type) {
	case *actor.Started:
		a.logger.Info("StoreActor started", "page_id", a.store.PageID())

	case *actor.Stopping:
		a.logger.Info("StoreActor stopping")

	case *actor.Stopped:
		a.logger.Info("StoreActor stopped")

	case *actor.Restarting:
		a.logger.Warn("StoreActor restarting")

	case *DispatchMsg:
		err := a.store.Dispatch(msg.Action)
		if err != nil {
			a.metrics.IncrementErrors()
		}
		context.Respond(&DispatchResult{Err: err})

	case *GetSnapshotMsg:
		context.Respond(a.store.AllData())

	case *GetUserMsg:
		context.Respond(a.store.User())

	case *GetCountsMsg:
		page := a.store.AllData()
		context.Respond(&Counts{
			NumPosts:          page.NumPosts,
			NumPostsExclTitle: page.NumPostsExclTitle,
			NumTopLevel:       len(page.TopLevelCommentIDsSorted),
		})

	case *SubscribeMsg:
		listener := msg.Listener
		st := a.store
		id := st.AddChangeListener(func() {
			listener(st.Changes())
		})
		context.Respond(id)

	case *UnsubscribeMsg:
		context.Respond(a.store.RemoveChangeListener(msg.ID))

	default:
		a.logger.Warn("StoreActor: unknown message type", "type", fmt.Sprintf("%T", msg))
	}
}

// Engine coordinates communication with the store actor
type Engine struct {
	system     *actor.ActorSystem
	storeActor *actor.PID
	timeout    time.Duration
}

const defaultRequestTimeout = 5 * time.Second

func NewEngine(system *actor.ActorSystem, st *store.Store, metrics *utils.MetricsCollector, logger *slog.Logger) *Engine {
	storeProps := actor.PropsFromProducer(func() actor.Actor {
		return NewStoreActor(st, metrics, logger)
	})
	storePID := system.Root.Spawn(storeProps)

	return &Engine{
		system:     system,
		storeActor: storePID,
		timeout:    defaultRequestTimeout,
	}
}

// GetStoreActor returns the PID of the store actor
func (e *Engine) GetStoreActor() *actor.PID {
	return e.storeActor
}

func (e *Engine) request(ctx context.Context, msg interface{}) (interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	timeout := e.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}

	future := e.system.Root.RequestFuture(e.storeActor, msg, timeout)
	result, err := future.Result()
	if err != nil {
		return nil, utils.NewActorTimeoutError("StoreActor", err)
	}
	return result, nil
}

// Dispatch applies one action on the store actor.
func (e *Engine) Dispatch(ctx context.Context, action store.Action) error {
	result, err := e.request(ctx, &DispatchMsg{Action: action})
	if err != nil {
		return err
	}
	res, ok := result.(*DispatchResult)
	if !ok {
		return utils.NewAppError(utils.ErrInternal, "unexpected dispatch response", nil)
	}
	return res.Err
}

// Snapshot returns a copy of the whole page.
func (e *Engine) Snapshot(ctx context.Context) (*models.PageStore, error) {
	result, err := e.request(ctx, &GetSnapshotMsg{})
	if err != nil {
		return nil, err
	}
	page, ok := result.(*models.PageStore)
	if !ok {
		return nil, utils.NewAppError(utils.ErrInternal, "unexpected snapshot response", nil)
	}
	return page, nil
}

func (e *Engine) User(ctx context.Context) (*models.User, error) {
	result, err := e.request(ctx, &GetUserMsg{})
	if err != nil {
		return nil, err
	}
	user, ok := result.(*models.User)
	if !ok {
		return nil, utils.NewAppError(utils.ErrInternal, "unexpected user response", nil)
	}
	return user, nil
}

func (e *Engine) Counts(ctx context.Context) (*Counts, error) {
	result, err := e.request(ctx, &GetCountsMsg{})
	if err != nil {
		return nil, err
	}
	counts, ok := result.(*Counts)
	if !ok {
		return nil, utils.NewAppError(utils.ErrInternal, "unexpected counts response", nil)
	}
	return counts, nil
}

// Subscribe registers listener for change sets. See SubscribeMsg.
func (e *Engine) Subscribe(ctx context.Context, listener func(store.ChangeSet)) (uuid.UUID, error) {
	result, err := e.request(ctx, &SubscribeMsg{Listener: listener})
	if err != nil {
		return uuid.Nil, err
	}
	id, ok := result.(uuid.UUID)
	if !ok {
		return uuid.Nil, utils.NewAppError(utils.ErrInternal, "unexpected subscribe response", nil)
	}
	return id, nil
}

func (e *Engine) Unsubscribe(ctx context.Context, id uuid.UUID) (bool, error) {
	result, err := e.request(ctx, &UnsubscribeMsg{ID: id})
	if err != nil {
		return false, err
	}
	removed, _ := result.(bool)
	return removed, nil
}
