package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/gradebook/core/grade"
)

type reportApi struct {
	svc      grade.ServiceInterface
	validate *validator.Validate
	metrics  *Metrics // optional
}

func registerReportAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc grade.ServiceInterface,
	validate *validator.Validate,
	metrics *Metrics,
) {
	api := reportApi{
		svc:      svc,
		validate: validate,
		metrics:  metrics,
	}

	rg := g.Group("/reports", jwt)
	rg.GET("/periodic", api.periodic)
	rg.GET("/yearly", api.yearly)
	rg.GET("/masters", api.masters)
}

// bindQuery binds and validates the report query, scoping it to what the context user may see:
// students only get their own rows, teachers only their own masters.
func (api *reportApi) bindQuery(ctx echo.Context, kind string) (grade.ReportQuery, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return grade.ReportQuery{}, errors.Wrap(err, "getting context claims")
	}

	var rq grade.ReportQuery
	if err = ctx.Bind(&rq); err != nil {
		return grade.ReportQuery{}, errors.Wrap(err, "binding to ReportQuery")
	}
	if err = rq.Validate(api.validate); err != nil {
		return grade.ReportQuery{}, err
	}

	rq.SchoolID = claims.SchoolID
	switch {
	case claims.IsAdmin:
	case claims.IsTeacher:
		if kind == "masters" {
			rq.TeacherID = claims.Subject
		}
	default:
		rq.StudentIDs = []string{claims.Subject}
	}
	return rq, nil
}

func (api *reportApi) respond(ctx echo.Context, kind string, rq grade.ReportQuery, report interface{}) error {
	if api.metrics != nil {
		api.metrics.reportBuilt(kind)
	}
	studentIDs := rq.StudentIDs
	if studentIDs == nil {
		studentIDs = []string{}
	}
	return ctx.JSON(http.StatusOK, ReportResponse{
		Success: true,
		Data: ReportData{
			Report:       report,
			AcademicYear: rq.AcademicYear,
			ClassID:      rq.ClassID,
			Period:       rq.Period,
			StudentIDs:   studentIDs,
		},
	})
}

// Handlers

func (api *reportApi) periodic(ctx echo.Context) error {
	rq, err := api.bindQuery(ctx, "periodic")
	if err != nil {
		return err
	}
	report, err := api.svc.PeriodicReport(ctx.Request().Context(), rq)
	if err != nil {
		return errors.Wrap(err, "building periodic report")
	}
	return api.respond(ctx, "periodic", rq, report)
}

func (api *reportApi) yearly(ctx echo.Context) error {
	rq, err := api.bindQuery(ctx, "yearly")
	if err != nil {
		return err
	}
	report, err := api.svc.YearlyReport(ctx.Request().Context(), rq)
	if err != nil {
		return errors.Wrap(err, "building yearly report")
	}
	return api.respond(ctx, "yearly", rq, report)
}

func (api *reportApi) masters(ctx echo.Context) error {
	rq, err := api.bindQuery(ctx, "masters")
	if err != nil {
		return err
	}
	report, err := api.svc.MastersReport(ctx.Request().Context(), rq)
	if err != nil {
		return errors.Wrap(err, "building masters report")
	}
	return api.respond(ctx, "masters", rq, report)
}

type (
	ReportData struct {
		Report       interface{}  `json:"report"`
		AcademicYear string       `json:"academicYear"`
		ClassID      string       `json:"classId"`
		Period       grade.Period `json:"period,omitempty"`
		StudentIDs   []string     `json:"studentIds"`
	}

	ReportResponse struct {
		Success bool       `json:"success"`
		Data    ReportData `json:"data"`
	}
)
