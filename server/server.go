package server

import (
	"strings"
	"time"

	"hubdecomunidades/feeds"
	"hubdecomunidades/models"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

const icsFilename = "hubdecomunidades-eventos.ics"

// Store is the read-only database surface the server needs. Implemented
// by db.Reader.
type Store interface {
	feeds.EventStore
	ListSources() ([]models.EventSource, error)
}

type ServerConfig struct {

	// The hostname to use for the server
	Hostname string

	// The store to read events and sources from
	Store Store

	// The calendar feed builder
	Builder *feeds.Builder
}

// Returns a fiber.App instance to be used as an HTTP server for the
// calendar feed and the read-only events API
func Server(config *ServerConfig) *fiber.App {

	app := fiber.New(fiber.Config{
		AppName: "hubdecomunidades",
	})

	// Middleware to track the latency of each request
	app.Use(func(c *fiber.Ctx) error {
		// start timer
		start := time.Now()

		// next routes
		err := c.Next()

		// stop timer
		stop := time.Now()

		// Diff
		log.WithFields(log.Fields{
			"method":  c.Method(),
			"route":   c.Route().Path,
			"latency": stop.Sub(start),
		}).Info("Request")
		return err
	})

	app.Use(requestid.New(requestid.ConfigDefault))
	app.Use(compress.New())

	// Calendar clients and the web frontend fetch the feed from
	// anywhere; preflight requests are answered with permissive headers.
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "*",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// The calendar feed. All parameters are optional; absence means "no
	// filter". The whole document is built before any byte is sent, so a
	// failure never produces a truncated calendar.
	handleCalendar := func(c *fiber.Ctx) error {
		params := feedParams(c)

		feedRequests.Inc()
		start := time.Now()

		document, err := config.Builder.Build(params)
		if err != nil {
			feedErrors.Inc()
			log.WithFields(log.Fields{
				"error": err,
			}).Error("Error building calendar feed")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": err.Error(),
			})
		}

		feedBuildDuration.Observe(time.Since(start).Seconds())

		c.Set(fiber.HeaderContentType, "text/calendar; charset=utf-8")
		c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+icsFilename+`"`)
		return c.Send(document)
	}
	app.Get("/calendar.ics", handleCalendar)
	app.Post("/calendar.ics", handleCalendar)

	// Same filters as the feed, JSON instead of iCalendar
	app.Get("/events", func(c *fiber.Ctx) error {
		events, _, err := config.Builder.UpcomingEvents(feedParams(c))
		if err != nil {
			log.WithFields(log.Fields{
				"error": err,
			}).Error("Error getting events")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": err.Error(),
			})
		}

		if events == nil {
			events = []models.Event{}
		}

		return c.JSON(models.EventsResponse{
			Events: events,
			Count:  len(events),
		})
	})

	app.Get("/sources", func(c *fiber.Ctx) error {
		sources, err := config.Store.ListSources()
		if err != nil {
			log.WithFields(log.Fields{
				"error": err,
			}).Error("Error listing sources")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": err.Error(),
			})
		}

		if sources == nil {
			sources = []models.EventSource{}
		}

		return c.JSON(sources)
	})

	return app
}

// feedParams reads the filter query parameters. Malformed or missing
// values never reject a request; they simply widen the filter.
func feedParams(c *fiber.Ctx) feeds.FeedParams {
	return feeds.FeedParams{
		Community:       c.Query("community", ""),
		Category:        c.Query("category", ""),
		Sources:         splitSources(c.Query("sources", "")),
		User:            c.Query("user", ""),
		IncludeInternal: c.Query("internal", "") != "false",
	}
}

// splitSources parses the comma-separated sources parameter, dropping
// empty entries.
func splitSources(raw string) []string {
	if raw == "" {
		return nil
	}

	var ids []string
	for _, id := range strings.Split(raw, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
