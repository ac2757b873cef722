package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"LMS-backend/internal/catalog"
	"LMS-backend/internal/lending"
	"LMS-backend/internal/membership"
	"LMS-backend/internal/platform/auth"
	"LMS-backend/internal/platform/db"
	"LMS-backend/internal/platform/metrics"
	"LMS-backend/internal/platform/requestid"
)

func main() {
	// 設定読み込み
	cfg, err := db.LoadConfig("config/config.yaml")
	if err != nil {
		panic(err)
	}

	mode := cfg.Mode
	log.Printf("[INFO] mode:%s\n", mode)

	if mode != "dev" && mode != "release" {
		log.Fatal("config: mode must be dev or release")
	}
	if cfg.JWT.Secret == "" {
		log.Fatal("config: jwt.secret is required")
	}

	conn, err := db.Connect(cfg.DB)
	if err != nil {
		panic(err)
	}
	defer conn.Close()

	log.Printf("[INFO] connected to DB (driver:%s)", cfg.DB.Driver)

	ctx := context.Background()
	if err := db.Migrate(ctx, conn, cfg.DB.Driver); err != nil {
		log.Fatal(err)
	}
	if err := db.Seed(ctx, conn); err != nil {
		log.Fatal(err)
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery(), requestid.Middleware())
	_ = r.SetTrustedProxies(nil)

	if mode == "dev" {
		// CORS（開発中のみ必要。Angularのdevサーバ向け）
		r.Use(cors.New(cors.Config{
			AllowOrigins:     []string{"http://localhost:4200", "http://localhost:3000"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-Id"},
			ExposeHeaders:    []string{"Content-Length", "Location"},
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowCredentials: true,
		}))
	}

	// ヘルス・メトリクス
	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	secret := []byte(cfg.JWT.Secret)

	memberSvc := membership.NewService(conn)
	authSvc := auth.NewService(memberSvc.Store(), secret)
	catalogSvc := catalog.NewService(conn, cfg.DB.Driver)
	lendingSvc := lending.NewService(conn, cfg.DB.Driver, cfg.Lending)

	// /api 配下。参照系以外はJWT必須、管理系は admin ロール必須
	api := r.Group("/api")
	authed := api.Group("", auth.RequireAuth(secret))
	admin := authed.Group("", auth.RequireRole(membership.RoleAdmin))

	auth.RegisterRoutes(api, authed, authSvc)
	catalog.RegisterRoutes(api, admin, catalogSvc)
	lending.RegisterRoutes(authed, admin, lendingSvc)
	membership.RegisterRoutes(admin, memberSvc)

	srv := &http.Server{
		Addr:    cfg.HTTP.Addr,
		Handler: r,
	}

	go func() {
		log.Printf("[INFO] listening on %s", cfg.HTTP.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit
	log.Println("[INFO] shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal(err)
	}
}
