package main

import (
	"log"
	"os"

	"backend/config"
	"backend/controllers"
	"backend/querystore"
	"backend/routes"
	"backend/services"
)

func main() {
	config.InitDB()

	dbPath := os.Getenv("QUERY_DB_PATH")
	if dbPath == "" {
		dbPath = "medimeal_query.db"
	}
	store, err := querystore.Open(dbPath)
	if err != nil {
		log.Fatalf("Failed to open query store: %v", err)
	}
	defer store.Close()

	querySvc := services.NewSQLQueryService(store)
	syncSvc := services.NewSyncService(services.NewGormPrimarySource(config.DB), store)

	r := routes.SetupRouter(controllers.NewSQLQueryController(querySvc, syncSvc))

	addr := os.Getenv("LISTEN_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	if err := r.Run(addr); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
