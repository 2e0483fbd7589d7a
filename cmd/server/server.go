package server

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/khatadev/khata/cmd"
	"github.com/khatadev/khata/internal/api"
	"github.com/khatadev/khata/internal/config"
	"github.com/khatadev/khata/internal/console"
	"github.com/khatadev/khata/internal/live"
	"github.com/khatadev/khata/internal/media"
	"github.com/khatadev/khata/internal/models"
	"github.com/khatadev/khata/internal/monitor"
	"github.com/khatadev/khata/internal/repository"
	"github.com/khatadev/khata/internal/services"
	"github.com/khatadev/khata/internal/store"
	"github.com/khatadev/khata/internal/workers"
)

// RunServerCmd représente la commande 'run-server' de Cobra.
// C'est le point d'entrée pour lancer le serveur de l'application.
var RunServerCmd = &cobra.Command{
	Use:   "run-server",
	Short: "Lance le serveur HTTP, le ticker de visiteurs et la console opérateur.",
	Long: `Cette commande charge le document d'état, prépare les répertoires média,
démarre les workers d'événements, le ticker de visiteurs et la console
opérateur, puis lance le serveur HTTP.`,
	Run: func(cobraCmd *cobra.Command, args []string) {
		cfg, err := config.LoadConfig()
		if err != nil {
			log.Fatalf("Échec du chargement de la configuration : %v", err)
		}

		// Load (and repair if needed) the state document.
		st, err := store.Open(cfg.Storage.DataFile)
		if err != nil {
			log.Fatalf("Échec du chargement de l'état : %v", err)
		}

		// Prepare the media areas and the OG cover stub.
		mediaMgr, err := media.NewManager(cfg.Storage.StaticDir)
		if err != nil {
			log.Fatalf("Échec de la préparation des répertoires média : %v", err)
		}

		// Analytics database for client events.
		db, err := gorm.Open(sqlite.Open(cfg.Analytics.DatabaseName), &gorm.Config{})
		if err != nil {
			log.Fatalf("Échec de la connexion à la base analytique : %v", err)
		}
		if err := db.AutoMigrate(&models.Event{}); err != nil {
			log.Fatalf("Échec de la migration de la base analytique : %v", err)
		}

		// Initialiser les repositories
		listingRepo := repository.NewListingRepository(st)
		eventRepo := repository.NewEventRepository(db)
		log.Println("Repositories initialisés.")

		// Live fan-out and payload building.
		hub := live.NewHub()
		publisher := live.NewPublisher(hub, st, mediaMgr, cfg.Server.BaseURL)

		// Initialiser les services métiers
		clock := services.RealClock{}
		moderation := services.NewModerationService(st, mediaMgr, publisher, clock,
			services.Tariffs{Banner: cfg.Tariff.Banner, Hot: cfg.Tariff.Hot, Normal: cfg.Tariff.Normal},
			cfg.Listings.ActiveDays, cfg.Listings.PlaceholderImage, cfg.Server.BaseURL)
		engagement := services.NewEngagementService(st, publisher, clock,
			time.Duration(cfg.Engagement.ViewCooldownMinutes)*time.Minute)
		log.Println("Services métiers initialisés.")

		// Event channel and workers for the analytics pipeline.
		eventsChan := make(chan models.EventRecord, cfg.Analytics.BufferSize)
		api.EventsChannel = eventsChan
		workers.StartEventWorkers(cfg.Analytics.WorkerCount, eventsChan, eventRepo)
		log.Printf("Channel d'événements initialisé avec un buffer de %d. %d worker(s) démarré(s).",
			cfg.Analytics.BufferSize, cfg.Analytics.WorkerCount)

		// Initialiser et lancer le ticker de visiteurs.
		tickInterval := time.Duration(cfg.Visitors.TickSeconds) * time.Second
		ticker := monitor.NewVisitorTicker(st, publisher, tickInterval)
		go ticker.Start()
		log.Printf("Ticker de visiteurs démarré avec un intervalle de %v.", tickInterval)

		// Console opérateur sur l'entrée standard.
		operator := console.New(st, listingRepo, moderation, mediaMgr, publisher, cfg.Server.BaseURL, os.Stdout)
		go operator.Run(os.Stdin)
		log.Println("Console opérateur prête. Tapez: help")

		// Configurer le routeur Gin et les handlers API.
		router := gin.Default()
		api.SetupRoutes(router, &api.Handlers{
			Cfg:        cfg,
			Store:      st,
			Repo:       listingRepo,
			Moderation: moderation,
			Engagement: engagement,
			Publisher:  publisher,
			Media:      mediaMgr,
			Clock:      clock,
		}, cfg.Analytics.BufferSize)
		log.Println("Routes API configurées.")

		serverAddr := fmt.Sprintf(":%d", cfg.Server.Port)
		srv := &http.Server{
			Addr:    serverAddr,
			Handler: router,
		}

		// Démarrer le serveur dans une goroutine pour ne pas bloquer.
		go func() {
			log.Printf("Démarrage du serveur sur %s", serverAddr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("Échec du démarrage du serveur : %v", err)
			}
		}()

		// Gérer l'arrêt propre du serveur (graceful shutdown).
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		<-quit
		log.Println("Signal d'arrêt reçu. Arrêt du serveur...")

		// Laisser le temps aux workers d'événements de finir.
		close(eventsChan)
		time.Sleep(2 * time.Second)

		log.Println("Serveur arrêté proprement.")
	},
}

func init() {
	cmd.RootCmd.AddCommand(RunServerCmd)
}
