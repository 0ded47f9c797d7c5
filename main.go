// @title           RFP Comparison API
// @version         1.0
// @description     Schema-less proposal form discovery and multi-vendor comparison backend.
// @termsOfService  http://swagger.io/terms/

// @contact.name   API Support

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

// @schemes http https
package main

import (
	_ "backend/docs"
	"backend/handlers"
	"backend/models"
	"backend/services"
	"backend/storage"
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"strconv"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// CORSConfig returns the CORS settings shared by the whole API.
func CORSConfig() cors.Config {
	config := cors.DefaultConfig()
	config.AllowOrigins = []string{"http://localhost:3000", "http://localhost:5173"}
	if extra := os.Getenv("CORS_ALLOW_ORIGIN"); extra != "" {
		config.AllowOrigins = append(config.AllowOrigins, extra)
	}
	config.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	config.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	config.AllowCredentials = true
	return config
}

// cronRunning guards against overlapping maintenance runs.
var cronRunning int32

// safeGo runs fn in a goroutine with panic recovery so one failing job
// cannot take down the rest of the maintenance cycle.
func safeGo(ctx context.Context, wg *sync.WaitGroup, name string, fn func(ctx context.Context), cronLogger *log.Logger) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer func() {
			if r := recover(); r != nil {
				cronLogger.Printf("[PANIC] job %s: %v\n%s", name, r, debug.Stack())
			}
		}()
		fn(ctx)
	}()
}

// runMaintenanceJobs executes the daily housekeeping cycle: expired session
// cleanup, RFP expiry and deadline reminders.
func runMaintenanceJobs(gdb *gorm.DB, db *sql.DB, cronLogger *log.Logger) {
	if !atomic.CompareAndSwapInt32(&cronRunning, 0, 1) {
		cronLogger.Println("maintenance already running, skipping this cycle")
		return
	}
	defer atomic.StoreInt32(&cronRunning, 0)

	ctx, cancel := context.WithTimeout(context.Background(), 25*time.Minute)
	defer cancel()

	var wg sync.WaitGroup

	safeGo(ctx, &wg, "session-cleanup", func(ctx context.Context) {
		if err := storage.CleanupExpiredSessions(db); err != nil {
			cronLogger.Printf("session cleanup failed: %v", err)
		}
	}, cronLogger)

	safeGo(ctx, &wg, "rfp-expiry", func(ctx context.Context) {
		expired, err := storage.ListExpiredRfps(gdb, time.Now())
		if err != nil {
			cronLogger.Printf("listing expired RFPs failed: %v", err)
			return
		}
		for i := range expired {
			expired[i].Status = models.RfpStatusExpired
			if err := storage.UpdateRfp(gdb, &expired[i]); err != nil {
				cronLogger.Printf("expiring RFP %s failed: %v", expired[i].ID, err)
			}
		}
		if len(expired) > 0 {
			cronLogger.Printf("marked %d RFPs as expired", len(expired))
		}
	}, cronLogger)

	safeGo(ctx, &wg, "deadline-reminders", func(ctx context.Context) {
		now := time.Now()
		upcoming, err := storage.ListRfpsWithDeadlineBetween(gdb, now, now.Add(48*time.Hour))
		if err != nil {
			cronLogger.Printf("listing upcoming deadlines failed: %v", err)
			return
		}
		for _, rfp := range upcoming {
			handlers.NotifyDeadlineApproaching(ctx, db, rfp)
		}
	}, cronLogger)

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		cronLogger.Println("maintenance cycle finished")
	case <-ctx.Done():
		cronLogger.Println("maintenance cycle timed out")
	}
}

func main() {
	db := storage.InitDB()
	defer db.Close()
	gdb := storage.InitGormDB()

	oracle := services.NewAIService()
	index := services.NewChunkSearchService(db)
	discovery := services.NewFormDiscoveryService(oracle, index)
	extractor := services.NewVendorExtractService(oracle, index)
	engine := handlers.NewComparisonEngine(oracle)

	emailService := services.NewEmailService()
	handlers.SetEmailService(emailService)

	fcmCredentials := os.Getenv("FCM_CREDENTIALS_PATH")
	if fcmCredentials == "" {
		fcmCredentials = "firebase-credentials.json"
	}
	fcmService, err := services.NewFCMService(fcmCredentials, db)
	if err != nil {
		log.Printf("Warning: FCM service unavailable, push notifications disabled: %v", err)
	} else {
		handlers.SetFCMService(fcmService)
	}

	cronLogFile, err := os.OpenFile("cron_errors.log", os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.Fatalf("Failed to open cron log file: %v", err)
	}
	defer cronLogFile.Close()
	cronLogger := log.New(cronLogFile, "", log.LstdFlags)

	c := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(cronLogger)))
	if _, err := c.AddFunc("30 2 * * *", func() {
		runMaintenanceJobs(gdb, db, cronLogger)
	}); err != nil {
		log.Fatalf("Failed to schedule maintenance job: %v", err)
	}
	c.Start()
	defer c.Stop()

	r := gin.Default()
	r.MaxMultipartMemory = 8 << 20
	r.Use(cors.New(CORSConfig()))

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	api := r.Group("/api")
	{
		api.POST("/login", handlers.LoginHandler(db))
		api.POST("/logout", handlers.LogoutHandler(db))
		api.GET("/sessions", handlers.GetActiveSessions(db))
		api.GET("/validate-session", handlers.ValidateSession(db))

		api.POST("/rfps", handlers.CreateRFP(gdb, db))
		api.GET("/rfps", handlers.ListRFPs(gdb, db))
		api.GET("/rfps/:rfp_id", handlers.GetRFP(gdb, db))
		api.PUT("/rfps/:rfp_id", handlers.UpdateRFP(gdb, db))
		api.DELETE("/rfps/:rfp_id", handlers.DeleteRFP(gdb, db))
		api.POST("/rfps/:rfp_id/document", handlers.UploadRFPDocument(gdb, db, index))
		api.POST("/rfps/:rfp_id/analyze", handlers.AnalyzeRFP(gdb, db, discovery))

		api.POST("/rfps/:rfp_id/proposals", handlers.CreateProposal(gdb, db))
		api.GET("/rfps/:rfp_id/proposals", handlers.ListProposals(gdb, db))
		api.POST("/rfps/:rfp_id/extract", handlers.ExtractAllProposals(gdb, db, extractor))
		api.GET("/proposals/:id", handlers.GetProposal(gdb, db))
		api.DELETE("/proposals/:id", handlers.DeleteProposal(gdb, db))
		api.POST("/proposals/:id/document", handlers.UploadProposalDocument(gdb, db, index))
		api.POST("/proposals/:id/extract", handlers.ExtractProposal(gdb, db, extractor))

		api.GET("/rfps/:rfp_id/comparison-matrix", handlers.GetComparisonMatrix(gdb, db, engine))
		api.POST("/rfps/:rfp_id/comparison", handlers.SaveComparison(gdb, db))
		api.GET("/rfps/:rfp_id/comparison", handlers.GetSavedComparisonHandler(gdb, db))
		api.DELETE("/rfps/:rfp_id/comparison", handlers.DeleteSavedComparisonHandler(gdb, db))
		api.GET("/comparisons", handlers.ListSavedComparisonsHandler(gdb, db))

		api.GET("/rfps/:rfp_id/export/csv", handlers.ExportComparisonCSV(gdb, db, engine))
		api.GET("/rfps/:rfp_id/export/xlsx", handlers.ExportComparisonXLSX(gdb, db, engine))
		api.GET("/rfps/:rfp_id/export/pdf", handlers.GenerateBidSummaryPDF(gdb, db, engine))
		api.GET("/rfps/:rfp_id/share-qr", handlers.GenerateComparisonQR(gdb, db))

		api.GET("/notifications", handlers.ListNotificationsHandler(db))
		api.PUT("/notifications/:id/read", handlers.MarkNotificationAsReadHandler(db))
		api.PUT("/notifications/read-all", handlers.MarkAllNotificationsAsReadHandler(db))
		api.POST("/fcm-token", handlers.SaveFCMTokenHandler(db))
		api.DELETE("/fcm-token", handlers.RemoveFCMTokenHandler(db))
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	if _, err := strconv.Atoi(port); err != nil {
		log.Fatalf("Invalid PORT value %q: %v", port, err)
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", port),
		Handler: r,
	}

	go func() {
		log.Printf("Server listening on port %s", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
	log.Println("Server exited")
}
