package http

import (
	"github.com/gin-gonic/gin"

	appsvc "docsort/internal/app"
	"docsort/internal/bootstrap"
	"docsort/internal/report"
	"docsort/internal/transport/http/handler"
	"docsort/internal/transport/http/middleware"
)

// multipartOverhead covers boundaries and headers around the uploaded file.
const multipartOverhead = 1 << 20

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	maxUpload := app.Config.App.MaxUploadBytes

	router := gin.New()
	// Uploads within the limit are parsed in memory; anything that spills to a
	// temp file is removed by the process handler before it returns.
	router.MaxMultipartMemory = maxUpload + multipartOverhead
	router.Use(
		middleware.RequestID(),
		middleware.AccessLog(app.Logger),
		middleware.Recovery(app.Logger),
	)

	healthHandler := handler.NewHealthHandler(app)
	router.GET("/", healthHandler.Hello)
	router.GET("/healthz", healthHandler.Check)

	var statsSource handler.StatsSource
	if app.Stats != nil {
		statsSource = app.Stats
	}
	statsHandler := handler.NewStatsHandler(statsSource, app.Logger)
	router.GET("/stats", statsHandler.Get)

	classifyService := appsvc.NewClassifyService(
		app.Classifier,
		report.NewGenerator(app.Config.Report.VerifyOutput),
		classifyOptions(app),
		app.Logger,
	)
	processHandler := handler.NewProcessHandler(classifyService, maxUpload, app.Logger)
	// Base64 JSON bodies are a third larger than the file they carry.
	bodyLimit := maxUpload + maxUpload/3 + multipartOverhead
	router.POST("/process-image", middleware.BodyLimit(bodyLimit), processHandler.ProcessImage)

	return router
}

// classifyOptions keeps nil pointers out of the service's optional interfaces.
func classifyOptions(app *bootstrap.App) appsvc.ClassifyOptions {
	opts := appsvc.ClassifyOptions{
		ChannelOrder:     app.ChannelOrder,
		InferenceTimeout: app.Config.InferenceTimeout(),
		ReportTimeout:    app.Config.ReportTimeout(),
		MaxPixels:        app.Config.Vision.MaxPixels,
	}
	if app.Stats != nil {
		opts.Stats = app.Stats
	}
	if app.Events != nil {
		opts.Events = app.Events
	}
	return opts
}
