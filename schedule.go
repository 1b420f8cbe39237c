package ensemble

import (
	"log/slog"
	"math/rand"
	"time"

	"github.com/google/uuid"
)

// ScheduleID tags one ScheduleSend call for logging; it has no bearing on
// delivery and cannot be used to cancel the schedule.
type ScheduleID string

// scheduleSend delivers value to (kind, id) after d elapses, jittered by up
// to config.ScheduleJitter to avoid many identical schedules firing in
// lockstep. The timer is fire-and-forget: stopping a SystemCoordinator does
// not cancel outstanding schedules.
func (c *SystemCoordinator) scheduleSend(d time.Duration, kind Actor, id any, value any) ScheduleID {
	scheduleID := ScheduleID(uuid.NewString())

	if c.config.ScheduleJitter > 0 {
		d += time.Duration(rand.Int63n(int64(c.config.ScheduleJitter)))
	}

	c.logger.Debug("ensemble: scheduled send",
		slog.String("scheduleID", string(scheduleID)),
		slog.Duration("after", d),
	)

	time.AfterFunc(d, func() {
		c.Actors.send(kind, id, value)
	})

	return scheduleID
}
