package testutil

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/dalemusser/eventhub/internal/app/system/indexes"
	"github.com/dalemusser/eventhub/internal/app/system/validators"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoURIEnv points tests at an existing MongoDB instead of a container.
const MongoURIEnv = "EVENTHUB_TEST_MONGO_URI"

const mongoImage = "mongo:7"

var (
	clientOnce sync.Once
	client     *mongo.Client
	clientErr  error
)

// TestContext returns a context bounded for a single test step.
func TestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}

// SetupTestDB returns a fresh database with collections, validators and
// indexes in place. The database is dropped when the test ends. Tests are
// skipped when no MongoDB is reachable.
func SetupTestDB(t *testing.T) *mongo.Database {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping MongoDB test in -short mode")
	}

	c, err := sharedClient()
	if err != nil {
		t.Skipf("MongoDB unavailable: %v", err)
	}

	db := c.Database("eventhub_test_" + primitive.NewObjectID().Hex())
	ctx, cancel := TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("ensure validators: %v", err)
	}
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("ensure indexes: %v", err)
	}

	t.Cleanup(func() {
		ctx, cancel := TestContext()
		defer cancel()
		_ = db.Drop(ctx)
	})
	return db
}

func sharedClient() (*mongo.Client, error) {
	clientOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		uri := os.Getenv(MongoURIEnv)
		if uri == "" {
			uri, clientErr = startContainer(ctx)
			if clientErr != nil {
				return
			}
		}

		client, clientErr = mongo.Connect(ctx, options.Client().ApplyURI(uri))
		if clientErr != nil {
			return
		}
		if clientErr = client.Ping(ctx, nil); clientErr != nil {
			_ = client.Disconnect(context.Background())
			client = nil
		}
	})
	return client, clientErr
}

// startContainer runs a single MongoDB container for the test binary. It is
// reaped by testcontainers when the process exits.
func startContainer(ctx context.Context) (uri string, err error) {
	defer func() {
		// testcontainers panics on some hosts without a Docker daemon.
		if r := recover(); r != nil {
			err = fmt.Errorf("start container: %v", r)
		}
	}()

	req := testcontainers.ContainerRequest{
		Image:        mongoImage,
		ExposedPorts: []string{"27017/tcp"},
		WaitingFor:   wait.ForLog("Waiting for connections").WithStartupTimeout(90 * time.Second),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return "", err
	}

	host, err := container.Host(ctx)
	if err != nil {
		return "", err
	}
	port, err := container.MappedPort(ctx, "27017")
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("mongodb://%s:%s", host, port.Port()), nil
}
