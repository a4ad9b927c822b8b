package emitter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/liultimate/siglent-acq/pkg/waveform"
)

// packetKind mirrors the small set of session-bus message shapes a
// consumer needs to distinguish; mirrors protocol.InstrumentData's role
// in the source, one struct per wire event instead of one catch-all.
type packetKind string

const (
	kindFrameBegin packetKind = "frame_begin"
	kindFrameEnd   packetKind = "frame_end"
	kindAnalog     packetKind = "analog"
	kindLogic      packetKind = "logic"
	kindEnd        packetKind = "end"
)

type packet struct {
	Kind      packetKind       `json:"kind"`
	Timestamp time.Time        `json:"timestamp"`
	Channel   int              `json:"channel,omitempty"`
	Samples   []float32        `json:"samples,omitempty"`
	Meaning   *waveform.Meaning `json:"meaning,omitempty"`
	Packed    []byte           `json:"packed,omitempty"`
	UnitSize  int              `json:"unit_size,omitempty"`
}

// RedisEmitter publishes session packets over Redis pub/sub, with a
// capped list per packet kind as a persistence backstop — the same
// publish-then-LPush-then-LTrim shape the source's MessageQueue uses.
type RedisEmitter struct {
	client      *redis.Client
	pubChannel  string
	log         *logrus.Logger
	listCap     int64
}

func NewRedisEmitter(addr, password, pubChannel string, db, poolSize int, log *logrus.Logger) (*RedisEmitter, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
		PoolSize: poolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("连接Redis失败: %w", err)
	}
	log.Info("Redis连接成功")

	return &RedisEmitter{client: client, pubChannel: pubChannel, log: log, listCap: 999}, nil
}

func (e *RedisEmitter) publish(p packet) {
	p.Timestamp = time.Now()
	data, err := json.Marshal(p)
	if err != nil {
		e.log.Errorf("序列化数据失败: %v", err)
		return
	}

	ctx := context.Background()
	if err := e.client.Publish(ctx, e.pubChannel, data).Err(); err != nil {
		e.log.Errorf("发布消息失败: %v", err)
		return
	}

	listKey := fmt.Sprintf("siglent_acq:%s", p.Kind)
	if err := e.client.LPush(ctx, listKey, data).Err(); err != nil {
		e.log.Warnf("保存到List失败: %v", err)
		return
	}
	e.client.LTrim(ctx, listKey, 0, e.listCap)
}

func (e *RedisEmitter) SendFrameBegin() { e.publish(packet{Kind: kindFrameBegin}) }
func (e *RedisEmitter) SendFrameEnd()   { e.publish(packet{Kind: kindFrameEnd}) }

func (e *RedisEmitter) SendAnalog(channel int, samples []float32, meaning waveform.Meaning) {
	e.publish(packet{Kind: kindAnalog, Channel: channel, Samples: samples, Meaning: &meaning})
}

func (e *RedisEmitter) SendLogic(packed []byte, unitSize int) {
	e.publish(packet{Kind: kindLogic, Packed: packed, UnitSize: unitSize})
}

func (e *RedisEmitter) SendEnd() { e.publish(packet{Kind: kindEnd}) }

func (e *RedisEmitter) StopAcquisition() {}

func (e *RedisEmitter) Close() error { return e.client.Close() }
