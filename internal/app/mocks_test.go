package app_test

import (
	"context"
	"sync"
	"time"

	"bodysync/internal/domain"
)

type mockBlobStore struct {
	mu    sync.Mutex
	docs  map[string][]byte
	puts  int
	getFn func(ctx context.Context, key string) ([]byte, error)
	putFn func(ctx context.Context, key string, data []byte) error
}

func newMockBlobStore() *mockBlobStore {
	return &mockBlobStore{docs: make(map[string][]byte)}
}

func (m *mockBlobStore) Get(ctx context.Context, key string) ([]byte, error) {
	if m.getFn != nil {
		return m.getFn(ctx, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.docs[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return data, nil
}

func (m *mockBlobStore) Put(ctx context.Context, key string, data []byte) error {
	if m.putFn != nil {
		return m.putFn(ctx, key, data)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.puts++
	m.docs[key] = append([]byte(nil), data...)
	return nil
}

type mockExchanger struct {
	calls     int
	refreshFn func(ctx context.Context, creds domain.ClientCredentials, refreshToken string) (domain.TokenGrant, error)
}

func (m *mockExchanger) RefreshToken(ctx context.Context, creds domain.ClientCredentials, refreshToken string) (domain.TokenGrant, error) {
	m.calls++
	if m.refreshFn != nil {
		return m.refreshFn(ctx, creds, refreshToken)
	}
	return domain.TokenGrant{AccessToken: "new-access", RefreshToken: "new-refresh", ExpiresIn: 10800}, nil
}

type mockSource struct {
	groupsFn func(ctx context.Context, accessToken string, since, until time.Time) ([]domain.RawMeasureGroup, error)
}

func (m *mockSource) GetMeasureGroups(ctx context.Context, accessToken string, since, until time.Time) ([]domain.RawMeasureGroup, error) {
	if m.groupsFn != nil {
		return m.groupsFn(ctx, accessToken, since, until)
	}
	return nil, nil
}

// mockSink records every call in order as "op arg".
type mockSink struct {
	calls       []string
	recorded    []string
	listFn      func(ctx context.Context, start, end string) ([]string, error)
	compositeFn func(ctx context.Context, ts string, c domain.BodyComposition) error
}

func (m *mockSink) ListRecordedDays(ctx context.Context, start, end string) ([]string, error) {
	m.calls = append(m.calls, "list "+start+".."+end)
	if m.listFn != nil {
		return m.listFn(ctx, start, end)
	}
	return m.recorded, nil
}

func (m *mockSink) AddBodyComposition(ctx context.Context, ts string, c domain.BodyComposition) error {
	m.calls = append(m.calls, "composition "+ts)
	if m.compositeFn != nil {
		return m.compositeFn(ctx, ts, c)
	}
	return nil
}

func (m *mockSink) AddWeighIn(ctx context.Context, ts string, kg float64) error {
	m.calls = append(m.calls, "weight "+ts)
	return nil
}

func (m *mockSink) DeleteDay(ctx context.Context, day string) error {
	m.calls = append(m.calls, "delete "+day)
	return nil
}

type mockLedger struct {
	records []domain.SyncRecord
	addFn   func(ctx context.Context, rec domain.SyncRecord) (int64, error)
	listFn  func(ctx context.Context, limit int) ([]domain.SyncRecord, error)
}

func (m *mockLedger) AddSyncRecord(ctx context.Context, rec domain.SyncRecord) (int64, error) {
	if m.addFn != nil {
		return m.addFn(ctx, rec)
	}
	m.records = append(m.records, rec)
	return int64(len(m.records)), nil
}

func (m *mockLedger) ListRecentSyncRecords(ctx context.Context, limit int) ([]domain.SyncRecord, error) {
	if m.listFn != nil {
		return m.listFn(ctx, limit)
	}
	return m.records, nil
}

func ptr(v float64) *float64 { return &v }

func fullPoint(ts time.Time, kg float64) domain.MeasurementPoint {
	return domain.MeasurementPoint{
		Timestamp:         ts,
		WeightKg:          kg,
		MuscleMass:        ptr(55),
		HydrationPercent:  ptr(40),
		FatRatioPercent:   ptr(20),
		BoneMass:          ptr(3),
		VisceralFatRating: ptr(6),
	}
}
