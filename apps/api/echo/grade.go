package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/gradebook/core/grade"
)

type gradeApi struct {
	svc      grade.ServiceInterface
	validate *validator.Validate
}

func registerGradeAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc grade.ServiceInterface, validate *validator.Validate) {
	api := gradeApi{
		svc:      svc,
		validate: validate,
	}

	gg := g.Group("/grades", jwt)
	gg.GET("", api.query)
	gg.POST("", api.submit, staffMiddleware)
	gg.PUT("/:id/review", api.review, adminMiddleware())
	gg.DELETE("/:id", api.destroy, adminMiddleware())
}

// Handlers

func (api *gradeApi) submit(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data grade.NewGrade
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewGrade")
	}
	// teachers submit their own grades
	if !claims.IsAdmin {
		data.TeacherID = claims.Subject
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	rec, err := api.svc.Submit(ctx.Request().Context(), claims.SchoolID, data)
	if err != nil {
		return errors.Wrap(err, "submitting grade")
	}
	return ctx.JSON(http.StatusCreated, rec)
}

func (api *gradeApi) query(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	filter := new(grade.QueryFilter)
	if err = ctx.Bind(filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}
	filter.Clean()
	filter.SchoolID = claims.SchoolID
	switch {
	case claims.IsAdmin:
	case claims.IsTeacher:
		filter.TeacherID = claims.Subject
	default:
		filter.StudentIDs = []string{claims.Subject}
	}

	records, stats, err := api.svc.Query(ctx.Request().Context(), *filter)
	if err != nil {
		return errors.Wrap(err, "querying grades")
	}
	if records == nil {
		records = []grade.Record{}
	}
	return ctx.JSON(http.StatusOK, GradesResponse{
		Success: true,
		Data:    GradesData{Grades: records, Stats: stats},
	})
}

func (api *gradeApi) review(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data grade.ReviewGrade
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ReviewGrade")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	rec, err := api.svc.Review(ctx.Request().Context(), claims.SchoolID, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "reviewing grade")
	}
	return ctx.JSON(http.StatusOK, rec)
}

func (api *gradeApi) destroy(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	if err = api.svc.Delete(ctx.Request().Context(), claims.SchoolID, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting grade")
	}
	return ctx.NoContent(http.StatusNoContent)
}

type (
	GradesData struct {
		Grades []grade.Record `json:"grades"`
		Stats  grade.Stats    `json:"stats"`
	}

	GradesResponse struct {
		Success bool       `json:"success"`
		Data    GradesData `json:"data"`
	}
)
