package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/jkamau/darasa/core"
	"github.com/jkamau/darasa/core/assignment"
	"github.com/jkamau/darasa/core/submission"
	"github.com/jkamau/darasa/core/user"
)

type assignmentApi struct {
	usrSvc *user.Service
	assSvc *assignment.Service
	subSvc *submission.Service
}

func registerAssignmentAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	usrSvc *user.Service,
	assSvc *assignment.Service,
	subSvc *submission.Service,
) {
	api := assignmentApi{
		usrSvc: usrSvc,
		assSvc: assSvc,
		subSvc: subSvc,
	}

	ag := g.Group("/assignments", jwt)

	teacher := roleMiddleware(user.RoleTeacher)
	student := roleMiddleware(user.RoleStudent)

	ag.GET("", api.query, teacher)
	ag.POST("", api.create, teacher)
	ag.GET("/published/list", api.queryPublished, student)
	// legacy path kept for the existing client
	ag.GET("/getReviewedAssignments", api.queryReviewed, student)

	dg := ag.Group("/:id")
	dg.GET("", api.retrieve)
	dg.PUT("", api.update, teacher)
	dg.DELETE("", api.destroy, teacher)
	dg.POST("/publish", api.publish, teacher)
	dg.POST("/complete", api.complete, teacher)
	dg.POST("/submissions", api.submit, student)
	dg.GET("/submissions", api.querySubmissions, teacher)
	dg.POST("/submissions/:studentId/review", api.review, teacher)
}

// Handlers

func (api *assignmentApi) query(ctx echo.Context) error {
	filter := new(assignment.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}
	if err := filter.Clean(); err != nil {
		return err
	}

	actor, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	items, total, err := api.assSvc.Query(ctx.Request().Context(), actor, *filter)
	if err != nil {
		return errors.Wrap(err, "querying assignments")
	}
	if items == nil {
		items = []assignment.Assignment{}
	}
	return ctx.JSON(http.StatusOK, core.PaginatedResponse{
		Items: items,
		Total: total,
		Page:  filter.Page,
		Limit: filter.Limit,
	})
}

func (api *assignmentApi) create(ctx echo.Context) error {
	var data assignment.NewAssignment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAssignment")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	actor, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	ass, err := api.assSvc.Create(ctx.Request().Context(), actor, data)
	if err != nil {
		return errors.Wrap(err, "creating assignment")
	}
	return ctx.JSON(http.StatusCreated, ass)
}

func (api *assignmentApi) queryPublished(ctx echo.Context) error {
	page := new(core.Pagination)
	if err := ctx.Bind(page); err != nil {
		return errors.Wrap(err, "binding to Pagination")
	}
	page.Clean()

	actor, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	items, total, err := api.assSvc.QueryPublished(ctx.Request().Context(), actor, *page)
	if err != nil {
		return errors.Wrap(err, "querying published assignments")
	}
	if items == nil {
		items = []assignment.Assignment{}
	}
	return ctx.JSON(http.StatusOK, core.PaginatedResponse{
		Items: items,
		Total: total,
		Page:  page.Page,
		Limit: page.Limit,
	})
}

func (api *assignmentApi) queryReviewed(ctx echo.Context) error {
	actor, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	items, err := api.subSvc.QueryReviewed(ctx.Request().Context(), actor)
	if err != nil {
		return errors.Wrap(err, "querying reviewed submissions")
	}
	if items == nil {
		items = []submission.ReviewedSubmission{}
	}
	return ctx.JSON(http.StatusOK, ReviewedListResponse{Items: items})
}

func (api *assignmentApi) retrieve(ctx echo.Context) error {
	actor, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	ass, err := api.assSvc.Get(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting assignment")
	}

	resp := DetailResponse{Assignment: ass}
	if actor.IsStudent() {
		sub, err := api.subSvc.GetMine(ctx.Request().Context(), actor, ass.ID)
		if err != nil {
			return errors.Wrap(err, "getting own submission")
		}
		resp.MySubmission = sub
	}
	return ctx.JSON(http.StatusOK, resp)
}

func (api *assignmentApi) update(ctx echo.Context) error {
	var data assignment.UpdateAssignment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateAssignment")
	}

	actor, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	ass, err := api.assSvc.Update(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating assignment")
	}
	return ctx.JSON(http.StatusOK, ass)
}

func (api *assignmentApi) destroy(ctx echo.Context) error {
	actor, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	if err := api.assSvc.Delete(ctx.Request().Context(), actor, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting assignment")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *assignmentApi) publish(ctx echo.Context) error {
	actor, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	ass, err := api.assSvc.Publish(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "publishing assignment")
	}
	return ctx.JSON(http.StatusOK, ass)
}

func (api *assignmentApi) complete(ctx echo.Context) error {
	actor, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	ass, err := api.assSvc.Complete(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "completing assignment")
	}
	return ctx.JSON(http.StatusOK, ass)
}

func (api *assignmentApi) submit(ctx echo.Context) error {
	var data submission.NewSubmission
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubmission")
	}

	actor, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	sub, err := api.subSvc.Submit(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "creating submission")
	}
	return ctx.JSON(http.StatusCreated, sub)
}

func (api *assignmentApi) querySubmissions(ctx echo.Context) error {
	actor, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	items, err := api.subSvc.QueryForAssignment(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying submissions")
	}
	if items == nil {
		items = []submission.Submission{}
	}
	return ctx.JSON(http.StatusOK, SubmissionListResponse{Items: items})
}

func (api *assignmentApi) review(ctx echo.Context) error {
	var data submission.ReviewSubmission
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ReviewSubmission")
	}

	actor, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	sub, err := api.subSvc.Review(ctx.Request().Context(), actor, ctx.Param("id"), ctx.Param("studentId"), data)
	if err != nil {
		return errors.Wrap(err, "reviewing submission")
	}
	return ctx.JSON(http.StatusOK, sub)
}

type (
	DetailResponse struct {
		Assignment   assignment.Assignment  `json:"assignment"`
		MySubmission *submission.Submission `json:"mySubmission"`
	}

	SubmissionListResponse struct {
		Items []submission.Submission `json:"items"`
	}

	ReviewedListResponse struct {
		Items []submission.ReviewedSubmission `json:"items"`
	}
)
