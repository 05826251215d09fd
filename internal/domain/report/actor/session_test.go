// SPDX-License-Identifier: MIT

package actor

import (
	"testing"
	"time"

	"github.com/ManuGH/reportstream/internal/domain/report/model"
	"github.com/ManuGH/reportstream/internal/metrics"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestSession_DeliverOutcomes(t *testing.T) {
	s := NewSession(uuid.New(), 1)
	d := StatusChanged{ReportID: uuid.New(), Status: model.StatusQueued}

	assert.Equal(t, metrics.DeliveryDelivered, s.deliver(d, time.Millisecond))
	assert.Equal(t, metrics.DeliveryDroppedFull, s.deliver(d, time.Millisecond))
	assert.Equal(t, metrics.DeliveryDroppedFull, s.deliver(d, 0))

	<-s.Deliveries()
	s.Close()
	assert.Equal(t, metrics.DeliveryDroppedClosed, s.deliver(d, time.Millisecond))
}

func TestSession_CloseWhileBlockedSend(t *testing.T) {
	s := NewSession(uuid.New(), 1)
	d := StatusChanged{ReportID: uuid.New(), Status: model.StatusQueued}
	s.deliver(d, 0)

	go func() {
		time.Sleep(10 * time.Millisecond)
		s.Close()
	}()
	assert.Equal(t, metrics.DeliveryDroppedClosed, s.deliver(d, time.Second))
}

func TestSession_CloseIsIdempotent(t *testing.T) {
	s := NewSession(uuid.New(), 0)
	assert.False(t, s.Closed())
	s.Close()
	s.Close()
	assert.True(t, s.Closed())
	assert.Equal(t, 1, cap(s.Deliveries()), "buffer floor is one")
}
