package client

import (
	"context"
	"database/sql"
	"time"

	cloudruntimes "github.com/cloud-runtimes/cloudruntimes-go"
	"github.com/cloud-runtimes/cloudruntimes-go/runtimes/native"
)

// Stubs for namespaces that need local configuration the client was not
// given. Every method fails with CR_NOT_IMPLEMENTED so an unconfigured
// capability can never be mistaken for an empty result.

type notImplementedRedis struct{}

var _ native.Redis = notImplementedRedis{}

func errRedis() error { return cloudruntimes.NotImplementedf("redis") }

func (notImplementedRedis) Get(context.Context, string) (string, error)    { return "", errRedis() }
func (notImplementedRedis) Set(context.Context, string, string, time.Duration) error {
	return errRedis()
}
func (notImplementedRedis) Del(context.Context, ...string) (int64, error)    { return 0, errRedis() }
func (notImplementedRedis) Exists(context.Context, ...string) (int64, error) { return 0, errRedis() }
func (notImplementedRedis) Expire(context.Context, string, time.Duration) (bool, error) {
	return false, errRedis()
}
func (notImplementedRedis) TTL(context.Context, string) (time.Duration, error) {
	return 0, errRedis()
}
func (notImplementedRedis) Incr(context.Context, string) (int64, error) { return 0, errRedis() }
func (notImplementedRedis) IncrBy(context.Context, string, int64) (int64, error) {
	return 0, errRedis()
}
func (notImplementedRedis) Decr(context.Context, string) (int64, error) { return 0, errRedis() }
func (notImplementedRedis) HGet(context.Context, string, string) (string, error) {
	return "", errRedis()
}
func (notImplementedRedis) HSet(context.Context, string, ...string) (int64, error) {
	return 0, errRedis()
}
func (notImplementedRedis) HGetAll(context.Context, string) (map[string]string, error) {
	return nil, errRedis()
}
func (notImplementedRedis) HDel(context.Context, string, ...string) (int64, error) {
	return 0, errRedis()
}
func (notImplementedRedis) LPush(context.Context, string, ...string) (int64, error) {
	return 0, errRedis()
}
func (notImplementedRedis) RPush(context.Context, string, ...string) (int64, error) {
	return 0, errRedis()
}
func (notImplementedRedis) LPop(context.Context, string) (string, error) { return "", errRedis() }
func (notImplementedRedis) RPop(context.Context, string) (string, error) { return "", errRedis() }
func (notImplementedRedis) LLen(context.Context, string) (int64, error)  { return 0, errRedis() }
func (notImplementedRedis) SAdd(context.Context, string, ...string) (int64, error) {
	return 0, errRedis()
}
func (notImplementedRedis) SRem(context.Context, string, ...string) (int64, error) {
	return 0, errRedis()
}
func (notImplementedRedis) SMembers(context.Context, string) ([]string, error) {
	return nil, errRedis()
}
func (notImplementedRedis) SIsMember(context.Context, string, string) (bool, error) {
	return false, errRedis()
}
func (notImplementedRedis) ZAdd(context.Context, string, float64, string) (int64, error) {
	return 0, errRedis()
}
func (notImplementedRedis) ZRange(context.Context, string, int64, int64) ([]string, error) {
	return nil, errRedis()
}
func (notImplementedRedis) Do(context.Context, ...any) (any, error) { return nil, errRedis() }
func (notImplementedRedis) Close() error                            { return nil }

type notImplementedSQL struct{}

var _ native.SQL = notImplementedSQL{}

func errSQL() error { return cloudruntimes.NotImplementedf("sql") }

func (notImplementedSQL) Exec(context.Context, string, ...any) (*native.SQLResult, error) {
	return nil, errSQL()
}
func (notImplementedSQL) Query(context.Context, string, ...any) (*sql.Rows, error) {
	return nil, errSQL()
}
func (notImplementedSQL) QueryRow(context.Context, string, ...any) (*sql.Row, error) {
	return nil, errSQL()
}
func (notImplementedSQL) Begin(context.Context) (native.SQLTx, error) { return nil, errSQL() }
func (notImplementedSQL) Ping(context.Context) error                  { return errSQL() }
func (notImplementedSQL) Close() error                                { return nil }
