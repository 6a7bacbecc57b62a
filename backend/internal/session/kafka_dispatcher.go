package session

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/IBM/sarama"
)

// KafkaDispatcher 把每次驱动成功的 DeltaAppliedEvent 发到 fuzz 事件 topic。
// 浏览器会话持有信号量期间只做入队，真正的发送和退避重试在 worker 里完成；
// 下游（监控/对账）可以容忍丢事件，重试用尽就记日志丢弃。
type KafkaDispatcher struct {
	producer sarama.SyncProducer
	topic    string

	queue chan DeltaAppliedEvent
	wg    sync.WaitGroup

	// 多个 worker 共享，限制同时在途的 SendMessage
	kafkaSem *SemaphoreControl

	workers     int
	maxRetry    int
	baseBackoff time.Duration
	maxBackoff  time.Duration
}

type KafkaDispatcherOptions struct {
	QueueSize   int
	Workers     int
	MaxRetry    int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
}

func NewKafkaDispatcher(producer sarama.SyncProducer, topic string, kafkaSem *SemaphoreControl, opt KafkaDispatcherOptions) *KafkaDispatcher {
	if opt.Workers <= 0 {
		opt.Workers = 1
	}
	d := &KafkaDispatcher{
		producer:    producer,
		topic:       topic,
		queue:       make(chan DeltaAppliedEvent, opt.QueueSize),
		kafkaSem:    kafkaSem,
		workers:     opt.Workers,
		maxRetry:    opt.MaxRetry,
		baseBackoff: opt.BaseBackoff,
		maxBackoff:  opt.MaxBackoff,
	}

	d.Start()
	return d
}

// Enqueue 在会话的 publish 阶段调用；队列满时最多等到 ctx 结束，不会拖住下一次 apply。
func (d *KafkaDispatcher) Enqueue(ctx context.Context, evt DeltaAppliedEvent) error {
	select {
	case d.queue <- evt:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *KafkaDispatcher) Start() {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.workerLoop(i)
	}
}

// Close 停止接收事件，等待队列里剩余的事件发送完
func (d *KafkaDispatcher) Close() {
	close(d.queue)
	d.wg.Wait()
}

func (d *KafkaDispatcher) workerLoop(workerID int) {
	defer d.wg.Done()
	for evt := range d.queue {
		d.sendWithRetry(workerID, evt)
	}
}

func (d *KafkaDispatcher) sendWithRetry(workerID int, evt DeltaAppliedEvent) {
	if d.producer == nil || d.topic == "" {
		return
	}
	msg, err := d.encode(evt)
	if err != nil {
		log.Printf("encode applied event session=%s rev=%d: %v", evt.SessionID, evt.Revision, err)
		return
	}
	for attempt := 0; attempt <= d.maxRetry; attempt++ {
		if d.kafkaSem != nil {
			// worker 不在 apply 路径上，可以一直等
			_ = d.kafkaSem.Acquire(context.Background())
		}
		_, _, err = d.producer.SendMessage(msg)
		if d.kafkaSem != nil {
			_ = d.kafkaSem.Release()
		}
		if err == nil {
			return
		}
		if attempt == d.maxRetry {
			break
		}

		// 指数退避，封顶 maxBackoff
		backoff := d.baseBackoff * time.Duration(1<<attempt)
		if backoff > d.maxBackoff {
			backoff = d.maxBackoff
		}
		time.Sleep(backoff)
	}
	log.Printf("drop applied event after %d attempts session=%s op=%s rev=%d worker=%d: %v",
		d.maxRetry+1, evt.SessionID, evt.OperationID, evt.Revision, workerID, err)
}

// 以 sessionId 做 key，同一会话的事件落在同一分区，保持版本顺序
func (d *KafkaDispatcher) encode(evt DeltaAppliedEvent) (*sarama.ProducerMessage, error) {
	b, err := json.Marshal(evt)
	if err != nil {
		return nil, err
	}
	return &sarama.ProducerMessage{
		Topic: d.topic,
		Key:   sarama.StringEncoder(evt.SessionID),
		Value: sarama.ByteEncoder(b),
	}, nil
}
