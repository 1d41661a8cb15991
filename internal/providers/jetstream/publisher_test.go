package jetstream

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-mint-indexer/internal/adapter"
	"github.com/feral-file/ff-mint-indexer/internal/domain"
	"github.com/feral-file/ff-mint-indexer/internal/mocks"
)

func testConfig() Config {
	return Config{
		URL:            "nats://localhost:4222",
		StreamName:     "MINT_EVENTS",
		MaxReconnects:  3,
		ReconnectWait:  time.Second,
		ConnectionName: "mint-sync-test",
	}
}

func TestNewPublisher(t *testing.T) {
	t.Run("creates the stream", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		natsJS := mocks.NewMockNatsJetStream(ctrl)
		nc := mocks.NewMockNatsConn(ctrl)
		js := mocks.NewMockJetStream(ctrl)

		natsJS.EXPECT().
			Connect("nats://localhost:4222", gomock.Any()).
			DoAndReturn(func(_ string, opts ...nats.Option) (adapter.NatsConn, adapter.JetStream, error) {
				assert.Len(t, opts, 6)
				return nc, js, nil
			})
		js.EXPECT().
			CreateOrUpdateStream(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, cfg jetstream.StreamConfig) error {
				assert.Equal(t, "MINT_EVENTS", cfg.Name)
				assert.Equal(t, []string{"mints.>"}, cfg.Subjects)
				assert.Positive(t, cfg.Duplicates)
				return nil
			})
		nc.EXPECT().ConnectedUrl().Return("nats://localhost:4222")

		p, err := NewPublisher(context.Background(), testConfig(), natsJS)
		require.NoError(t, err)
		require.NotNil(t, p)

		nc.EXPECT().Close()
		p.Close()
	})

	t.Run("connect failure", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		natsJS := mocks.NewMockNatsJetStream(ctrl)
		natsJS.EXPECT().Connect(gomock.Any(), gomock.Any()).Return(nil, nil, errors.New("no servers available"))

		p, err := NewPublisher(context.Background(), testConfig(), natsJS)
		assert.Nil(t, p)
		assert.ErrorContains(t, err, "no servers available")
	})

	t.Run("stream failure closes the connection", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		natsJS := mocks.NewMockNatsJetStream(ctrl)
		nc := mocks.NewMockNatsConn(ctrl)
		js := mocks.NewMockJetStream(ctrl)

		natsJS.EXPECT().Connect(gomock.Any(), gomock.Any()).Return(nc, js, nil)
		js.EXPECT().CreateOrUpdateStream(gomock.Any(), gomock.Any()).Return(errors.New("insufficient resources"))
		nc.EXPECT().Close()

		p, err := NewPublisher(context.Background(), testConfig(), natsJS)
		assert.Nil(t, p)
		assert.ErrorContains(t, err, "MINT_EVENTS")
	})
}

func TestPublishMint(t *testing.T) {
	ctrl := gomock.NewController(t)
	nc := mocks.NewMockNatsConn(ctrl)
	js := mocks.NewMockJetStream(ctrl)
	p := &publisher{nc: nc, js: js, streamName: "MINT_EVENTS"}

	notification := &domain.MintNotification{
		Chain:           domain.ChainEthereumSepolia,
		ContractAddress: "0x1234567890abcdef1234567890abcdef12345678",
		TokenID:         7,
		MinterAddress:   "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
		Name:            "Cat",
		TransactionHash: "0xdead",
		BlockNumber:     42,
		Timestamp:       time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	js.EXPECT().
		Publish(gomock.Any(), "mints.eip155-11155111.applied", gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, data []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error) {
			assert.Len(t, opts, 2)

			var decoded domain.MintNotification
			require.NoError(t, json.Unmarshal(data, &decoded))
			assert.Equal(t, *notification, decoded)
			return &jetstream.PubAck{Stream: "MINT_EVENTS", Sequence: 1}, nil
		})

	require.NoError(t, p.PublishMint(context.Background(), notification))

	js.EXPECT().
		Publish(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, errors.New("nats: timeout"))

	err := p.PublishMint(context.Background(), notification)
	assert.ErrorContains(t, err, "failed to publish notification")
}

func TestBuildSubject(t *testing.T) {
	assert.Equal(t, "mints.eip155-1.applied", buildSubject(domain.ChainEthereumMainnet))
	assert.Equal(t, "mints.eip155-11155111.applied", buildSubject(domain.ChainEthereumSepolia))
}
