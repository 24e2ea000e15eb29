package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"vape-market/internal/ad"

	"github.com/golang/mock/gomock"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

// fakeWriter реализует WriterInterface и просто запоминает, какие сообщения ему передали.
type fakeWriter struct {
	lastMessages []kafka.Message
	returnError  error
}

func (f *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	f.lastMessages = append(f.lastMessages, msgs...)
	return f.returnError
}

func (f *fakeWriter) Close() error {
	return nil
}

func zapTestLogger(t *testing.T) *zap.SugaredLogger {
	t.Helper()
	logger, err := zap.NewDevelopmentConfig().Build(zap.AddCallerSkip(1))
	if err != nil {
		t.Fatalf("не удалось создать zap-логгер: %v", err)
	}
	return logger.Sugar()
}

func TestProducer_SendEvent_Success(t *testing.T) {
	logger := zapTestLogger(t)
	defer func() { _ = logger.Sync() }()

	fw := &fakeWriter{}
	p := &Producer{
		Writer: fw,
		Logger: logger,
	}

	evt := Event{
		Type:      EventTypeAdCreated,
		Ad:        &ad.Ad{ID: "ad_1_abc", SellerID: "u1", Title: "Pod kit", Price: 10, Category: "devices"},
		Timestamp: time.Now().UTC(),
	}

	if err := p.SendEvent(context.Background(), evt); err != nil {
		t.Fatalf("ожидали, что SendEvent не вернёт ошибку, но получили: %v", err)
	}

	if len(fw.lastMessages) != 1 {
		t.Fatalf("ожидали 1 записанное сообщение, но получили %d", len(fw.lastMessages))
	}

	// ключ партиционирования берётся из продавца объявления
	assert.Equal(t, "u1", string(fw.lastMessages[0].Key))

	var decoded Event
	if err := json.Unmarshal(fw.lastMessages[0].Value, &decoded); err != nil {
		t.Fatalf("не удалось разобрать записанное сообщение как JSON: %v", err)
	}
	assert.Equal(t, evt.Type, decoded.Type)
	if assert.NotNil(t, decoded.Ad) {
		assert.Equal(t, "ad_1_abc", decoded.Ad.ID)
	}
}

func TestProducer_SendEvent_WriteError(t *testing.T) {
	logger := zapTestLogger(t)
	defer func() { _ = logger.Sync() }()

	fw := &fakeWriter{returnError: errors.New("write failed")}
	p := &Producer{
		Writer: fw,
		Logger: logger,
	}

	evt := Event{
		Type:      EventTypeRatingUpdated,
		SellerID:  "u1",
		RaterID:   "u2",
		Rating:    5,
		Timestamp: time.Now().UTC(),
	}

	if err := p.SendEvent(context.Background(), evt); err == nil {
		t.Fatalf("ожидали ошибку от SendEvent, но получили nil")
	}
}

func TestProducer_SendEvent_WithMockWriter(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	writer := NewMockWriterInterface(ctrl)
	writer.EXPECT().
		WriteMessages(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, msgs ...kafka.Message) error {
			assert.Len(t, msgs, 1)
			assert.Equal(t, "seller-7", string(msgs[0].Key))
			return nil
		})
	writer.EXPECT().Close().Return(nil)

	p := &Producer{Writer: writer, Logger: zapTestLogger(t)}

	err := p.SendEvent(context.Background(), Event{
		Type:     EventTypeAdDeleted,
		SellerID: "seller-7",
		Ad:       &ad.Ad{ID: "ad_2_xyz", SellerID: "seller-7"},
	})
	assert.NoError(t, err)
	assert.NoError(t, p.Close())
}

func TestNopProducer(t *testing.T) {
	var p EventProducer = NopProducer{}
	assert.NoError(t, p.SendEvent(context.Background(), Event{Type: EventTypeAdCreated}))
	assert.NoError(t, p.Close())
}
