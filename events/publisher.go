package events

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	_ "github.com/pitabwire/natspubsub" // required for NATS pubsub driver registration
	"github.com/pitabwire/util"
	"github.com/rs/xid"
	"gocloud.dev/pubsub"
	_ "gocloud.dev/pubsub/mempubsub" // required for in-memory pubsub driver registration

	"github.com/pitabwire/l10n"
)

const defaultPublisherShutdownTimeout = 30 * time.Second

// Publisher sends support events to a pubsub topic.
type Publisher struct {
	url string

	mu     sync.Mutex
	topic  *pubsub.Topic
	isInit atomic.Bool
}

func NewPublisher(topicURL string) *Publisher {
	return &Publisher{url: topicURL}
}

// Init opens the topic.
func (p *Publisher) Init(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.isInit.Load() && p.topic != nil {
		return nil
	}

	topic, err := pubsub.OpenTopic(ctx, p.url)
	if err != nil {
		return err
	}

	p.topic = topic
	p.isInit.Store(true)
	return nil
}

func (p *Publisher) Initiated() bool {
	return p.isInit.Load()
}

// Publish sends evt, filling in the id, name and time when missing.
func (p *Publisher) Publish(ctx context.Context, name string, evt SupportEvent) error {
	p.mu.Lock()
	topic := p.topic
	p.mu.Unlock()

	if topic == nil {
		return errors.New("publisher is not initialized")
	}

	evt.Name = name
	if evt.ID == "" {
		evt.ID = xid.New().String()
	}
	if evt.Time.IsZero() {
		evt.Time = time.Now().UTC()
	}

	body, err := json.Marshal(evt)
	if err != nil {
		return err
	}

	return topic.Send(ctx, &pubsub.Message{
		Body:     body,
		Metadata: map[string]string{EventHeaderName: name},
	})
}

// Stop shuts the topic down. In-memory topics are shared by url within the
// process and are only detached.
func (p *Publisher) Stop(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.isInit.Store(false)

	if p.topic == nil {
		return nil
	}

	topic := p.topic
	p.topic = nil

	if strings.HasPrefix(strings.ToLower(p.url), "mem://") {
		return nil
	}

	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), defaultPublisherShutdownTimeout)
	defer cancel()

	return topic.Shutdown(sctx)
}

// Observer returns a support observer publishing the outcomes of language
// and then passing them on to next, which may be nil.
func (p *Publisher) Observer(ctx context.Context, language string, next l10n.SupportObserver) l10n.SupportObserver {
	if next == nil {
		next = l10n.ObserverFuncs{}
	}
	return &observer{
		ctx:       context.WithoutCancel(ctx),
		publisher: p,
		language:  language,
		next:      next,
	}
}

type observer struct {
	ctx       context.Context
	publisher *Publisher
	language  string
	next      l10n.SupportObserver
}

func (o *observer) emit(name string, evt SupportEvent) {
	evt.Language = o.language
	if err := o.publisher.Publish(o.ctx, name, evt); err != nil {
		util.Log(o.ctx).WithError(err).WithField("name", name).Error("could not emit event")
	}
}

func (o *observer) SupportCompletionProgress(percent int) {
	o.emit(EventSupportProgress, SupportEvent{Progress: percent})
	o.next.SupportCompletionProgress(percent)
}

func (o *observer) SupportComplete() {
	o.emit(EventSupportCompleted, SupportEvent{Progress: 100, Status: l10n.InstallSucceeded.String()})
	o.next.SupportComplete()
}

func (o *observer) SupportCompletionFailed(err error) {
	evt := SupportEvent{Status: l10n.InstallFailed.String()}
	if err != nil {
		evt.Error = err.Error()
	}

	var txnErr *l10n.TransactionError
	if errors.As(err, &txnErr) {
		evt.Transaction = txnErr.ID
		evt.Status = txnErr.Status.String()
	}

	o.emit(EventSupportFailed, evt)
	o.next.SupportCompletionFailed(err)
}
