package grpcstore

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"google.golang.org/grpc"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"xdao.co/npk/storage"
	"xdao.co/npk/storage/localfs"
	"xdao.co/npk/storage/testkit"
)

func startServer(t *testing.T, backend storage.Store, metrics *Metrics) *Client {
	t.Helper()

	lis := bufconn.Listen(1024 * 1024)
	var opts []grpc.ServerOption
	if metrics != nil {
		opts = append(opts, grpc.UnaryInterceptor(metrics.UnaryServerInterceptor()))
	}
	srv := grpc.NewServer(opts...)
	RegisterPackageStoreServer(srv, &Server{Store: backend, Metrics: metrics})

	go func() {
		_ = srv.Serve(lis)
	}()
	t.Cleanup(srv.Stop)

	dialer := func(ctx context.Context, s string) (net.Conn, error) { return lis.DialContext(ctx) }
	client, err := Dial("passthrough:///bufnet", DialOptions{
		Timeout: 2 * time.Second,
		Extra:   []grpc.DialOption{grpc.WithContextDialer(dialer)},
	})
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestGRPCStore_Conformance(t *testing.T) {
	testkit.RunStoreConformance(t, func(t *testing.T) storage.Store {
		s, err := localfs.New(t.TempDir())
		if err != nil {
			t.Fatalf("localfs.New: %v", err)
		}
		return startServer(t, s, nil)
	})
}

func TestGRPCStore_RejectsNonPackageBytes(t *testing.T) {
	backend := testkit.NewMemStore()
	reg := prometheus.NewRegistry()
	metrics, err := NewMetrics(reg)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	client := startServer(t, backend, metrics)
	ctx := context.Background()

	// Header announces 9 payload bytes but only one follows.
	_, err = client.Put(ctx, []byte{0, 0, 0, 2, 0, 0, 0, 9, 'x'})
	if !errors.Is(err, storage.ErrInvalidPackage) {
		t.Fatalf("Put truncated: got %v want ErrInvalidPackage", err)
	}
	if backend.Len() != 0 {
		t.Fatalf("rejected bytes must not be stored")
	}

	pkg := testkit.SamplePackage(t, "metrics")
	if _, err := storage.PutPackage(ctx, client, pkg); err != nil {
		t.Fatalf("PutPackage: %v", err)
	}

	if got := testutil.ToFloat64(metrics.requests.WithLabelValues("Put", "InvalidArgument")); got != 1 {
		t.Fatalf("InvalidArgument count: got %v want 1", got)
	}
	if got := testutil.ToFloat64(metrics.requests.WithLabelValues("Put", "OK")); got != 1 {
		t.Fatalf("OK count: got %v want 1", got)
	}
	if got := testutil.ToFloat64(metrics.stored); got != float64(len(pkg.Bytes())) {
		t.Fatalf("stored bytes: got %v want %d", got, len(pkg.Bytes()))
	}
}

func TestGRPCStore_GetMalformedCID(t *testing.T) {
	client := startServer(t, testkit.NewMemStore(), nil)
	_, err := client.client.Get(context.Background(), wrapperspb.String(""))
	if !errors.Is(fromStatus(err), storage.ErrInvalidCID) {
		t.Fatalf("Get empty cid: got %v want ErrInvalidCID", err)
	}
}

func TestMetrics_DoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := NewMetrics(reg); err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	if _, err := NewMetrics(reg); err == nil {
		t.Fatalf("expected duplicate registration error")
	}
}
