package main

import (
	"carhive/internal/vehicles/handler"
	"carhive/internal/vehicles/repository"
	"carhive/internal/vehicles/service"
	"carhive/internal/vehicles/validator"
	"carhive/pkg/app"
	"carhive/pkg/config"
	"carhive/pkg/storage"
)

const ServiceName = "vehicles"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	defer cfg.GracefulShutdown()

	cfg.Log.Info("Starting Vehicles service")

	vehicleService, images := initServices(cfg)

	serverApp := app.NewApplication(cfg)
	serverApp.ServeUploads(images.Dir())
	serverApp.SetApp(handler.NewVehicleHandler(vehicleService, cfg.Log))
	serverApp.Run()
}

func initServices(cfg *config.Config) (service.VehicleService, *storage.LocalStore) {
	vehicleValidator := validator.NewVehicleValidator(cfg.Log)
	vehicleRepo := repository.NewMongoVehicleRepository(cfg)

	images, err := storage.NewLocalStore(cfg.UploadDir, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to initialize image store", "error", err)
	}

	vehicleService := service.NewVehicleService(
		vehicleRepo,
		vehicleValidator,
		images,
		cfg,
	)

	cfg.Log.Info("Vehicle service initialized", "database", cfg.MongoDatabaseName)
	return vehicleService, images
}
