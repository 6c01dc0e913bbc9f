package visualizer

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/liip/sheriff"
	"github.com/rs/zerolog/log"
	"github.com/travigo/stopdensity/pkg/dataset"
)

type Server struct {
	DatasetPath string
	MapOptions  MapOptions
}

// NewServer builds the density API. The dataset is read on every request so a finished
// assign run shows up without a restart.
func NewServer(datasetPath string, options MapOptions) *fiber.App {
	server := &Server{
		DatasetPath: datasetPath,
		MapOptions:  options,
	}

	webApp := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          jsonErrorHandler,
	})
	webApp.Use(NewLogger())

	group := webApp.Group("/density")
	group.Get("/dates", server.getDates)
	group.Get("/:date", server.getPoints)
	group.Get("/:date/map", server.getMap)
	group.Get("/:date/heatmap", server.getHeatmap)
	group.Get("/:date/csv", server.getCSV)

	return webApp
}

func SetupServer(listen string, datasetPath string, options MapOptions) error {
	log.Info().Str("listen", listen).Str("dataset", datasetPath).Msg("Starting density server")

	return NewServer(datasetPath, options).Listen(listen)
}

func jsonErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	var fiberError *fiber.Error
	if errors.As(err, &fiberError) {
		code = fiberError.Code
	}

	c.Status(code)
	return c.JSON(fiber.Map{
		"error": err.Error(),
	})
}

func (s *Server) load() (dataset.Dataset, error) {
	data, err := Load(s.DatasetPath)
	if errors.Is(err, dataset.ErrNotFound) {
		return nil, fiber.NewError(fiber.StatusServiceUnavailable, "Dataset has not been built yet")
	} else if err != nil {
		log.Error().Err(err).Msg("Failed to load dataset")
		return nil, fiber.NewError(fiber.StatusInternalServerError, "Could not load dataset")
	}

	return data, nil
}

func (s *Server) points(c *fiber.Ctx) ([]Point, error) {
	data, err := s.load()
	if err != nil {
		return nil, err
	}

	points, err := PointsForDate(data, c.Params("date"), c.Query("filter"))
	if errors.Is(err, ErrUnknownDate) {
		return nil, fiber.NewError(fiber.StatusNotFound, "No stop counts for date "+c.Params("date"))
	} else if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	return points, nil
}

func (s *Server) getDates(c *fiber.Ctx) error {
	data, err := s.load()
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"dates": PossibleDates(data),
	})
}

func (s *Server) getPoints(c *fiber.Ctx) error {
	points, err := s.points(c)
	if err != nil {
		return err
	}

	groups := []string{"basic"}
	if c.QueryBool("detailed") {
		groups = append(groups, "detailed")
	}

	pointsReduced, err := sheriff.Marshal(&sheriff.Options{
		Groups: groups,
	}, points)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "Sheriff could not reduce points")
	}

	return c.JSON(pointsReduced)
}

func (s *Server) heatmap(c *fiber.Ctx) (*Heatmap, error) {
	points, err := s.points(c)
	if err != nil {
		return nil, err
	}

	return NewHeatmap(points, c.Params("date"), s.MapOptions)
}

func (s *Server) getHeatmap(c *fiber.Ctx) error {
	heatmap, err := s.heatmap(c)
	if err != nil {
		return err
	}

	return c.JSON(heatmap)
}

func (s *Server) getMap(c *fiber.Ctx) error {
	heatmap, err := s.heatmap(c)
	if err != nil {
		return err
	}

	c.Type("html", "utf-8")
	return heatmap.Render(c)
}

func (s *Server) getCSV(c *fiber.Ctx) error {
	points, err := s.points(c)
	if err != nil {
		return err
	}

	c.Attachment("stop_count_" + c.Params("date") + ".csv")
	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	return ExportCSV(c, points)
}
