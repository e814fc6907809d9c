// Package semantic owns the vector index: a Qdrant adapter for deployments
// and a bbolt adapter for local runs.
package semantic

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/WessleyAI/citycast/engine/domain"
	"github.com/google/uuid"
	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
)

// pointsAPI is the subset of pb.PointsClient used here.
type pointsAPI interface {
	Upsert(ctx context.Context, in *pb.UpsertPoints, opts ...grpc.CallOption) (*pb.PointsOperationResponse, error)
	Search(ctx context.Context, in *pb.SearchPoints, opts ...grpc.CallOption) (*pb.SearchResponse, error)
	Count(ctx context.Context, in *pb.CountPoints, opts ...grpc.CallOption) (*pb.CountResponse, error)
}

// collectionsAPI is the subset of pb.CollectionsClient used here.
type collectionsAPI interface {
	List(ctx context.Context, in *pb.ListCollectionsRequest, opts ...grpc.CallOption) (*pb.ListCollectionsResponse, error)
	Create(ctx context.Context, in *pb.CreateCollection, opts ...grpc.CallOption) (*pb.CollectionOperationResponse, error)
	Get(ctx context.Context, in *pb.GetCollectionInfoRequest, opts ...grpc.CallOption) (*pb.GetCollectionInfoResponse, error)
}

// Readiness polling defaults for a freshly created collection.
const (
	DefaultPollInterval = 500 * time.Millisecond
	DefaultReadyTimeout = 30 * time.Second
)

// VectorStore is the sole owner of all Qdrant operations.
type VectorStore struct {
	conn        *grpc.ClientConn
	points      pointsAPI
	collections collectionsAPI
	collection  string
	dims        int

	pollInterval time.Duration
	readyTimeout time.Duration
	logger       *slog.Logger
}

// Option configures a VectorStore.
type Option func(*VectorStore)

// WithReadiness overrides the readiness poll interval and bound.
func WithReadiness(interval, timeout time.Duration) Option {
	return func(v *VectorStore) {
		v.pollInterval = interval
		v.readyTimeout = timeout
	}
}

// WithLogger sets the store's logger.
func WithLogger(l *slog.Logger) Option {
	return func(v *VectorStore) { v.logger = l }
}

// New creates a VectorStore connected to Qdrant at the given gRPC address.
// A non-empty apiKey is sent as the api-key header on every call.
func New(addr, collection, apiKey string, opts ...Option) (*VectorStore, error) {
	dialOpts := []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
	if apiKey != "" {
		dialOpts = append(dialOpts, grpc.WithUnaryInterceptor(apiKeyInterceptor(apiKey)))
	}
	conn, err := grpc.NewClient(addr, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("semantic: dial qdrant %s: %w", addr, err)
	}
	v := newStore(pb.NewPointsClient(conn), pb.NewCollectionsClient(conn), collection, opts...)
	v.conn = conn
	return v, nil
}

// NewWithClients builds a VectorStore over existing clients. Close is a no-op.
func NewWithClients(points pointsAPI, collections collectionsAPI, collection string, opts ...Option) *VectorStore {
	return newStore(points, collections, collection, opts...)
}

func newStore(points pointsAPI, collections collectionsAPI, collection string, opts ...Option) *VectorStore {
	v := &VectorStore{
		points:       points,
		collections:  collections,
		collection:   collection,
		pollInterval: DefaultPollInterval,
		readyTimeout: DefaultReadyTimeout,
		logger:       slog.Default(),
	}
	for _, o := range opts {
		o(v)
	}
	return v
}

func apiKeyInterceptor(key string) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		ctx = metadata.AppendToOutgoingContext(ctx, "api-key", key)
		return invoker(ctx, method, req, reply, cc, opts...)
	}
}

// Close closes the underlying gRPC connection.
func (v *VectorStore) Close() error {
	if v.conn == nil {
		return nil
	}
	return v.conn.Close()
}

// EnsureCollection creates the collection with cosine distance if it doesn't
// exist, then waits until Qdrant reports it green. An existing collection
// whose vector size differs from dims fails with ErrDimensionMismatch.
func (v *VectorStore) EnsureCollection(ctx context.Context, dims int) error {
	v.dims = dims

	list, err := v.collections.List(ctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return fmt.Errorf("semantic: list collections: %w", err)
	}
	for _, c := range list.GetCollections() {
		if c.GetName() == v.collection {
			return v.checkExisting(ctx, dims)
		}
	}

	_, err = v.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: v.collection,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     uint64(dims),
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("semantic: create collection %s: %w", v.collection, err)
	}
	if err := v.waitReady(ctx); err != nil {
		return err
	}
	v.logger.Info("qdrant collection created", "collection", v.collection, "dims", dims)
	return nil
}

func (v *VectorStore) checkExisting(ctx context.Context, dims int) error {
	info, err := v.collections.Get(ctx, &pb.GetCollectionInfoRequest{CollectionName: v.collection})
	if err != nil {
		return fmt.Errorf("semantic: get collection %s: %w", v.collection, err)
	}
	size := info.GetResult().GetConfig().GetParams().GetVectorsConfig().GetParams().GetSize()
	if size != uint64(dims) {
		return fmt.Errorf("semantic: collection %s has %d dims, want %d: %w", v.collection, size, dims, ErrDimensionMismatch)
	}
	v.logger.Info("qdrant collection exists", "collection", v.collection, "dims", dims)
	return nil
}

// waitReady polls the collection status until green or readyTimeout elapses.
func (v *VectorStore) waitReady(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, v.readyTimeout)
	defer cancel()

	ticker := time.NewTicker(v.pollInterval)
	defer ticker.Stop()

	for {
		info, err := v.collections.Get(ctx, &pb.GetCollectionInfoRequest{CollectionName: v.collection})
		if err == nil && info.GetResult().GetStatus() == pb.CollectionStatus_Green {
			return nil
		}
		select {
		case <-ctx.Done():
			if err != nil {
				return fmt.Errorf("semantic: collection %s: %w: %v", v.collection, ErrIndexNotReady, err)
			}
			return fmt.Errorf("semantic: collection %s: %w", v.collection, ErrIndexNotReady)
		case <-ticker.C:
		}
	}
}

// pointID maps a city name to a stable Qdrant UUID so upserts overwrite.
func pointID(city string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("city:"+city)).String()
}

// Upsert stores city records, replacing any existing point for the same city.
func (v *VectorStore) Upsert(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}

	points := make([]*pb.PointStruct, len(records))
	for i, r := range records {
		if err := validateRecord(r, v.dims); err != nil {
			return err
		}
		points[i] = &pb.PointStruct{
			Id: &pb.PointId{
				PointIdOptions: &pb.PointId_Uuid{Uuid: pointID(r.ID)},
			},
			Vectors: &pb.Vectors{
				VectorsOptions: &pb.Vectors_Vector{
					Vector: &pb.Vector{Data: r.Vector},
				},
			},
			Payload: map[string]*pb.Value{
				keyCity:        {Kind: &pb.Value_StringValue{StringValue: r.ID}},
				keyTemperature: {Kind: &pb.Value_DoubleValue{DoubleValue: r.Weather.Temperature}},
				keyWindSpeed:   {Kind: &pb.Value_DoubleValue{DoubleValue: r.Weather.WindSpeed}},
			},
		}
	}

	wait := true
	_, err := v.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: v.collection,
		Wait:           &wait,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("semantic: upsert %d points: %w", len(records), err)
	}
	return nil
}

// Search performs k-NN similarity search, best match first.
func (v *VectorStore) Search(ctx context.Context, vector []float32, topK int) ([]Match, error) {
	resp, err := v.points.Search(ctx, &pb.SearchPoints{
		CollectionName: v.collection,
		Vector:         vector,
		Limit:          uint64(topK),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, fmt.Errorf("semantic: search: %w", err)
	}

	matches := make([]Match, 0, len(resp.GetResult()))
	for _, p := range resp.GetResult() {
		m, err := matchFromPayload(p.GetPayload(), p.GetScore())
		if err != nil {
			return nil, fmt.Errorf("semantic: search: point %s: %w", p.GetId().GetUuid(), err)
		}
		matches = append(matches, m)
	}
	return matches, nil
}

// Count returns the exact number of points in the collection.
func (v *VectorStore) Count(ctx context.Context) (int, error) {
	exact := true
	resp, err := v.points.Count(ctx, &pb.CountPoints{CollectionName: v.collection, Exact: &exact})
	if err != nil {
		return 0, fmt.Errorf("semantic: count: %w", err)
	}
	return int(resp.GetResult().GetCount()), nil
}

func matchFromPayload(payload map[string]*pb.Value, score float32) (Match, error) {
	city := payload[keyCity].GetStringValue()
	temp, okT := numberValue(payload[keyTemperature])
	wind, okW := numberValue(payload[keyWindSpeed])
	switch {
	case city == "":
		return Match{}, domain.NewValidationError(keyCity, "", domain.ErrInvalidCity)
	case !okT:
		return Match{}, domain.NewValidationError(keyTemperature, "", domain.ErrInvalidWeather)
	case !okW:
		return Match{}, domain.NewValidationError(keyWindSpeed, "", domain.ErrInvalidWeather)
	}
	return Match{
		ID:      city,
		Score:   score,
		Weather: domain.Weather{Temperature: temp, WindSpeed: wind},
	}, nil
}

// numberValue accepts double or integer payload values.
func numberValue(v *pb.Value) (float64, bool) {
	switch k := v.GetKind().(type) {
	case *pb.Value_DoubleValue:
		return k.DoubleValue, true
	case *pb.Value_IntegerValue:
		return float64(k.IntegerValue), true
	default:
		return 0, false
	}
}
