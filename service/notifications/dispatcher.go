package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/CineTrackHQ/CineTrack-server/cmd/models"
	"github.com/google/uuid"
	expo "github.com/oliveroneill/exponent-server-sdk-golang/sdk"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

// Dispatcher drains due pending queue entries, fans each out to its owner's
// active device tokens, submits the messages to Expo in fixed-size batches, and
// retires tokens Expo reports as unregistered.
//
// Queue-entry status models the delivery attempt, not per-device success: every
// claimed entry ends the run as sent (even with zero tokens, even when some of
// its tickets errored). Per-token failures surface only through the run
// counters and token deactivation.
type Dispatcher struct {
	db           *gorm.DB
	gateway      PushGateway
	limiter      *rate.Limiter
	processLimit int
	batchSize    int
}

func NewDispatcher(db *gorm.DB, gateway PushGateway) *Dispatcher {
	return &Dispatcher{
		db:      db,
		gateway: gateway,
		// Expo asks senders to stay under ~10 requests per second.
		limiter:      rate.NewLimiter(rate.Limit(10), 1),
		processLimit: ProcessLimit(),
		batchSize:    BatchSize(),
	}
}

// outboundMessage keeps the entry and token a push message was built from, so a
// ticket at position i can be traced back to exactly one token.
type outboundMessage struct {
	entryID uint
	token   string
	message expo.PushMessage
}

// Run executes one dispatch pass. The zero-work case (no due entries) is not an
// error; it returns an empty result.
func (d *Dispatcher) Run(ctx context.Context) (*models.DispatchResult, error) {
	runID := uuid.New().String()

	entries, err := d.claimDue(ctx, time.Now(), runID)
	if err != nil {
		return nil, fmt.Errorf("claiming due entries: %w", err)
	}
	if len(entries) == 0 {
		return &models.DispatchResult{}, nil
	}
	log.Printf("[dispatch %s] claimed %d due entries", runID, len(entries))

	entryIDs := make([]uint, 0, len(entries))
	for _, e := range entries {
		entryIDs = append(entryIDs, e.ID)
	}

	tokensByUser, err := d.activeTokens(ctx, entries)
	if err != nil {
		// Claimed rows must not be silently redelivered; park them for the
		// operator's bulk retry.
		d.releaseToFailed(ctx, entryIDs)
		return nil, fmt.Errorf("loading push tokens: %w", err)
	}

	messages := fanOut(entries, tokensByUser)
	result := &models.DispatchResult{Processed: len(entries)}
	deadTokens := make(map[string]bool)

	for _, batch := range chunkMessages(messages, d.batchSize) {
		if err := d.limiter.Wait(ctx); err != nil {
			result.Failed += len(batch)
			continue
		}

		pushMessages := make([]expo.PushMessage, len(batch))
		for i, m := range batch {
			pushMessages[i] = m.message
		}

		tickets, err := d.gateway.PublishMultiple(pushMessages)
		if err != nil {
			// Transport-level failure: the whole batch counts as failed and no
			// token is deactivated, since nothing confirmed a dead device.
			log.Printf("[dispatch %s] batch of %d failed: %v", runID, len(batch), err)
			result.Failed += len(batch)
			continue
		}
		if len(tickets) != len(batch) {
			log.Printf("[dispatch %s] ticket count %d does not match batch size %d", runID, len(tickets), len(batch))
			result.Failed += len(batch)
			continue
		}

		for i, ticket := range tickets {
			if err := ticket.ValidateResponse(); err != nil {
				result.Failed++
				if _, ok := err.(*expo.DeviceNotRegisteredError); ok {
					deadTokens[batch[i].token] = true
				}
				continue
			}
			result.Sent++
		}
	}

	if err := d.markSent(ctx, entryIDs); err != nil {
		return nil, fmt.Errorf("marking entries sent: %w", err)
	}

	if len(deadTokens) > 0 {
		if err := d.deactivateTokens(ctx, deadTokens); err != nil {
			return nil, fmt.Errorf("deactivating tokens: %w", err)
		}
		log.Printf("[dispatch %s] deactivated %d unregistered tokens", runID, len(deadTokens))
	}

	log.Printf("[dispatch %s] processed=%d sent=%d failed=%d", runID, result.Processed, result.Sent, result.Failed)
	return result, nil
}

// claimDue moves up to processLimit due pending entries to processing, tagged
// with this run's claim id. The status guard makes an overlapping run's claim
// of the same rows affect zero of them, and the claim id keeps its follow-up
// read from seeing rows this run won.
func (d *Dispatcher) claimDue(ctx context.Context, now time.Time, claimID string) ([]models.NotificationQueueEntry, error) {
	var ids []uint
	err := d.db.WithContext(ctx).
		Model(&models.NotificationQueueEntry{}).
		Where("status = ? AND scheduled_for <= ?", models.StatusPending, now).
		Limit(d.processLimit).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	res := d.db.WithContext(ctx).
		Model(&models.NotificationQueueEntry{}).
		Where("id IN ? AND status = ?", ids, models.StatusPending).
		Updates(map[string]interface{}{
			"status":   models.StatusProcessing,
			"claim_id": claimID,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}

	var entries []models.NotificationQueueEntry
	err = d.db.WithContext(ctx).
		Where("claim_id = ? AND status = ?", claimID, models.StatusProcessing).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (d *Dispatcher) activeTokens(ctx context.Context, entries []models.NotificationQueueEntry) (map[uint][]string, error) {
	userSet := make(map[uint]bool)
	userIDs := make([]uint, 0, len(entries))
	for _, e := range entries {
		if !userSet[e.UserID] {
			userSet[e.UserID] = true
			userIDs = append(userIDs, e.UserID)
		}
	}

	var tokens []models.PushToken
	err := d.db.WithContext(ctx).
		Where("user_id IN ? AND is_active = ?", userIDs, true).
		Find(&tokens).Error
	if err != nil {
		return nil, err
	}

	byUser := make(map[uint][]string)
	for _, t := range tokens {
		byUser[t.UserID] = append(byUser[t.UserID], t.ExpoPushToken)
	}
	return byUser, nil
}

// fanOut builds one push message per (entry, active token) pair. Entries whose
// user has no active token contribute nothing; they are still marked sent.
func fanOut(entries []models.NotificationQueueEntry, tokensByUser map[uint][]string) []outboundMessage {
	var messages []outboundMessage
	for _, e := range entries {
		data := decodeData(e.Data)
		for _, token := range tokensByUser[e.UserID] {
			messages = append(messages, outboundMessage{
				entryID: e.ID,
				token:   token,
				message: expo.PushMessage{
					To:       []expo.ExponentPushToken{expo.ExponentPushToken(token)},
					Title:    e.Title,
					Body:     e.Body,
					Data:     data,
					Sound:    "default",
					Priority: expo.DefaultPriority,
				},
			})
		}
	}
	return messages
}

// decodeData turns the stored JSON payload into the string map the Expo SDK
// ships to the client. Unparseable payloads are dropped rather than failing the
// entry; the notification still delivers without a deep link.
func decodeData(raw string) map[string]string {
	if raw == "" {
		return nil
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return nil
	}
	data := make(map[string]string, len(decoded))
	for key, value := range decoded {
		data[key] = fmt.Sprintf("%v", value)
	}
	return data
}

// chunkMessages splits messages into batches of at most size, preserving order.
func chunkMessages(messages []outboundMessage, size int) [][]outboundMessage {
	if size <= 0 {
		size = DefaultBatchSize
	}
	var batches [][]outboundMessage
	for start := 0; start < len(messages); start += size {
		end := start + size
		if end > len(messages) {
			end = len(messages)
		}
		batches = append(batches, messages[start:end])
	}
	return batches
}

func (d *Dispatcher) markSent(ctx context.Context, ids []uint) error {
	return d.db.WithContext(ctx).
		Model(&models.NotificationQueueEntry{}).
		Where("id IN ? AND status = ?", ids, models.StatusProcessing).
		Updates(map[string]interface{}{
			"status":  models.StatusSent,
			"sent_at": time.Now(),
		}).Error
}

// releaseToFailed parks claimed entries after a run-level error. They go to
// failed, not back to pending: the dispatcher never auto-retries, the bulk
// retry operator does.
func (d *Dispatcher) releaseToFailed(ctx context.Context, ids []uint) {
	err := d.db.WithContext(ctx).
		Model(&models.NotificationQueueEntry{}).
		Where("id IN ? AND status = ?", ids, models.StatusProcessing).
		Update("status", models.StatusFailed).Error
	if err != nil {
		log.Printf("releasing %d claimed entries to failed: %v", len(ids), err)
	}
}

func (d *Dispatcher) deactivateTokens(ctx context.Context, deadTokens map[string]bool) error {
	tokens := make([]string, 0, len(deadTokens))
	for t := range deadTokens {
		tokens = append(tokens, t)
	}
	return d.db.WithContext(ctx).
		Model(&models.PushToken{}).
		Where("expo_push_token IN ?", tokens).
		Update("is_active", false).Error
}

// RecoverStale moves processing entries older than the grace period to failed.
// They belong to runs that died between claiming and marking; redelivery is the
// operator's call via bulk retry.
func (d *Dispatcher) RecoverStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)
	res := d.db.WithContext(ctx).
		Model(&models.NotificationQueueEntry{}).
		Where("status = ? AND updated_at < ?", models.StatusProcessing, cutoff).
		Update("status", models.StatusFailed)
	return res.RowsAffected, res.Error
}
