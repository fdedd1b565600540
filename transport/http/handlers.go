package http

import (
	"encoding/json"
	"io"
	"net/http"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/gin-gonic/gin"
	"github.com/layer-3/xerial/core"
	"github.com/sirupsen/logrus"
)

const maxMessageSize = 64 << 10

// Bridge receives messages posted by login popups and republishes them on
// the window message topic, tagged with the popup's source.
type Bridge struct {
	publisher message.Publisher
	logger    logrus.FieldLogger

	mu      sync.RWMutex
	sources map[string]struct{}
}

// NewBridge creates a bridge publishing to publisher
func NewBridge(publisher message.Publisher, logger logrus.FieldLogger) *Bridge {
	return &Bridge{
		publisher: publisher,
		logger:    logger.WithField("component", "bridge"),
		sources:   make(map[string]struct{}),
	}
}

// Allow starts accepting messages from source
func (b *Bridge) Allow(source string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sources[source] = struct{}{}
}

// Revoke stops accepting messages from source
func (b *Bridge) Revoke(source string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.sources, source)
}

func (b *Bridge) allowed(source string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.sources[source]
	return ok
}

// PostMessage handles a popup posting its result
func (b *Bridge) PostMessage(c *gin.Context) {
	source := c.Param("source")
	if !b.allowed(source) {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown source"})
		return
	}

	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxMessageSize+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read body"})
		return
	}
	if len(payload) > maxMessageSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "message too large"})
		return
	}
	if !json.Valid(payload) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message must be JSON"})
		return
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set(core.MetadataSource, source)

	if err := b.publisher.Publish(core.WindowMessageTopic, msg); err != nil {
		b.logger.WithError(err).Error("failed to publish window message")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to deliver message"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"ok": true})
}

// Health reports that the bridge is up
func (b *Bridge) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
