// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds the backends shared by every hook after ConnectDB.
type DBDeps struct {
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database

	// bg is filled in by Startup and BuildHandler and drained by Shutdown.
	bg *background
}
