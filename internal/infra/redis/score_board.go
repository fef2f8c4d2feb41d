package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"trivia-service/internal/domain"
	"trivia-service/internal/infra/memory"
)

// ScoreBoard stores finished games in Redis.
// Ranking:  ZADD trivia:scores:{bankID} {score} {sessionID}:{finishedAtNanos}
// Entries:  HSET trivia:scores:{bankID}:entries {sessionID}:{finishedAtNanos} {json}
// A restarted session keeps its id, so every finished game gets its own member.
type ScoreBoard struct {
	client *redis.Client
}

func NewScoreBoard(client *redis.Client) *ScoreBoard {
	return &ScoreBoard{client: client}
}

func (b *ScoreBoard) Record(ctx context.Context, entry domain.ScoreEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal score: %w", err)
	}
	member := entryMember(entry)
	pipe := b.client.TxPipeline()
	pipe.ZAdd(ctx, b.rankKey(entry.BankID), redis.Z{Score: float64(entry.Score), Member: member})
	pipe.HSet(ctx, b.entriesKey(entry.BankID), member, data)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record score: %w", err)
	}
	return nil
}

func (b *ScoreBoard) Top(ctx context.Context, bankID string, limit int) ([]domain.ScoreEntry, error) {
	members, err := b.rankedMembers(ctx, bankID, limit)
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return []domain.ScoreEntry{}, nil
	}
	raw, err := b.client.HMGet(ctx, b.entriesKey(bankID), members...).Result()
	if err != nil {
		return nil, fmt.Errorf("read entries: %w", err)
	}

	entries := make([]domain.ScoreEntry, 0, len(raw))
	for i, v := range raw {
		s, ok := v.(string)
		if !ok {
			continue
		}
		var entry domain.ScoreEntry
		if err := json.Unmarshal([]byte(s), &entry); err != nil {
			return nil, fmt.Errorf("decode entry %s: %w", members[i], err)
		}
		entries = append(entries, entry)
	}
	memory.SortEntries(entries)
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// rankedMembers returns the top limit members plus every member tied with the
// cutoff score, since Redis orders equal scores by member name.
func (b *ScoreBoard) rankedMembers(ctx context.Context, bankID string, limit int) ([]string, error) {
	key := b.rankKey(bankID)
	if limit <= 0 {
		members, err := b.client.ZRevRange(ctx, key, 0, -1).Result()
		if err != nil {
			return nil, fmt.Errorf("read ranking: %w", err)
		}
		return members, nil
	}

	cutoff, err := b.client.ZRevRangeWithScores(ctx, key, int64(limit)-1, int64(limit)-1).Result()
	if err != nil {
		return nil, fmt.Errorf("read ranking cutoff: %w", err)
	}
	if len(cutoff) == 0 {
		members, err := b.client.ZRevRange(ctx, key, 0, -1).Result()
		if err != nil {
			return nil, fmt.Errorf("read ranking: %w", err)
		}
		return members, nil
	}
	members, err := b.client.ZRevRangeByScore(ctx, key, &redis.ZRangeBy{
		Min: strconv.FormatFloat(cutoff[0].Score, 'f', -1, 64),
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("read ranking: %w", err)
	}
	return members, nil
}

func entryMember(entry domain.ScoreEntry) string {
	return entry.SessionID + ":" + strconv.FormatInt(entry.FinishedAt.UnixNano(), 10)
}

func (b *ScoreBoard) rankKey(bankID string) string {
	return "trivia:scores:" + bankID
}

func (b *ScoreBoard) entriesKey(bankID string) string {
	return "trivia:scores:" + bankID + ":entries"
}
