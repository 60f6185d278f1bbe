package livestate

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func boardKey(heatID int64) string {
	return fmt.Sprintf("logitrack:heat:%d:board", heatID)
}

const allHeatsKey = "logitrack:heats"

func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// SetPipe writes one card into the heat's board hash, keyed by pipe number.
func (r *RedisStore) SetPipe(ctx context.Context, heatID int64, card PipeCard) error {
	data, err := json.Marshal(card)
	if err != nil {
		return err
	}
	pipe := r.client.Pipeline()
	pipe.HSet(ctx, boardKey(heatID), strconv.Itoa(card.Number), data)
	pipe.SAdd(ctx, allHeatsKey, heatID)
	_, err = pipe.Exec(ctx)
	return err
}

// ReplaceBoard swaps the whole board of a heat in one round trip.
func (r *RedisStore) ReplaceBoard(ctx context.Context, heatID int64, cards []PipeCard) error {
	pipe := r.client.TxPipeline()
	pipe.Del(ctx, boardKey(heatID))
	if len(cards) > 0 {
		fields := make([]any, 0, 2*len(cards))
		for _, c := range cards {
			data, err := json.Marshal(c)
			if err != nil {
				return err
			}
			fields = append(fields, strconv.Itoa(c.Number), data)
		}
		pipe.HSet(ctx, boardKey(heatID), fields...)
		pipe.SAdd(ctx, allHeatsKey, heatID)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (r *RedisStore) GetBoard(ctx context.Context, heatID int64) ([]PipeCard, error) {
	fields, err := r.client.HGetAll(ctx, boardKey(heatID)).Result()
	if err != nil {
		return nil, err
	}
	cards := make([]PipeCard, 0, len(fields))
	for _, v := range fields {
		var c PipeCard
		if err := json.Unmarshal([]byte(v), &c); err != nil {
			return nil, err
		}
		cards = append(cards, c)
	}
	return cards, nil
}

func (r *RedisStore) GetAllHeatIDs(ctx context.Context) ([]int64, error) {
	members, err := r.client.SMembers(ctx, allHeatsKey).Result()
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (r *RedisStore) RemoveHeat(ctx context.Context, heatID int64) error {
	pipe := r.client.Pipeline()
	pipe.Del(ctx, boardKey(heatID))
	pipe.SRem(ctx, allHeatsKey, heatID)
	_, err := pipe.Exec(ctx)
	return err
}

func (r *RedisStore) FlushAll(ctx context.Context) error {
	ids, err := r.GetAllHeatIDs(ctx)
	if err != nil {
		return err
	}
	for _, id := range ids {
		r.RemoveHeat(ctx, id)
	}
	return r.client.Del(ctx, allHeatsKey).Err()
}
