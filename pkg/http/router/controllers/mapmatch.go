package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
	"github.com/julienschmidt/httprouter"
	"github.com/lintang-b-s/roadsnap/pkg/datastructure"
	helper "github.com/lintang-b-s/roadsnap/pkg/http/router/routerhelper"
	"go.uber.org/zap"
)

const MAX_REQUEST_BODY_BYTES = 16 << 20

type mapMatchAPI struct {
	mapMatcherService MapMatcherService
	log               *zap.Logger
	validator         *validator.Validate
	trans             ut.Translator
}

func New(mapMatcherService MapMatcherService, log *zap.Logger) *mapMatchAPI {
	validate := validator.New()
	english := en.New()
	uni := ut.New(english, english)
	trans, _ := uni.GetTranslator("en")
	_ = enTranslations.RegisterDefaultTranslations(validate, trans)

	return &mapMatchAPI{
		mapMatcherService: mapMatcherService,
		log:               log,
		validator:         validate,
		trans:             trans,
	}
}

func (api *mapMatchAPI) Routes(group *helper.RouteGroup) {
	group.POST("/mapMatch", api.mapMatch)
	group.GET("/roads", api.roadsInBoundingBox)
	group.GET("/trajectories/:id/match", api.matchStoredTrajectory)
}

// mapMatch godoc
//
//	@Summary		snap every segment of a trajectory onto its best matching road
//	@Accept			json
//	@Produce		json
//	@Param			body	body		mapMatchRequest	true	"trajectory coordinates"
//	@Success		200		{object}	mapMatchResponse
//	@Failure		400		{object}	errorResponse
//	@Failure		422		{object}	errorResponse
//	@Router			/mapMatch [post]
func (api *mapMatchAPI) mapMatch(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	var (
		request mapMatchRequest
		err     error
	)
	r.Body = http.MaxBytesReader(w, r.Body, MAX_REQUEST_BODY_BYTES)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	err = dec.Decode(&request)
	if err != nil {
		api.BadRequestResponse(w, r, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if err := r.Body.Close(); err != nil {
		api.ServerErrorResponse(w, r, err)
		return
	}

	if err := api.validate(request); err != nil {
		api.BadRequestResponse(w, r, err)
		return
	}

	matched, err := api.mapMatcherService.MapMatch(r.Context(), request.toTrajectory())
	if err != nil {
		api.getStatusCode(w, r, err)
		return
	}

	headers := make(http.Header)
	if err := api.writeJSON(w, http.StatusOK, envelope{"data": NewMapMatchResponse(matched, false)}, headers); err != nil {
		api.ServerErrorResponse(w, r, err)
		return
	}
}

// roadsInBoundingBox godoc
//
//	@Summary		roads whose geometry touches a bounding box
//	@Produce		json
//	@Param			min_x	query		number	true	"min x"
//	@Param			min_y	query		number	true	"min y"
//	@Param			max_x	query		number	true	"max x"
//	@Param			max_y	query		number	true	"max y"
//	@Param			limit	query		int		false	"max roads returned"
//	@Success		200		{object}	[]roadResponse
//	@Failure		400		{object}	errorResponse
//	@Router			/roads [get]
func (api *mapMatchAPI) roadsInBoundingBox(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	var (
		request roadsRequest
		err     error
	)

	query := r.URL.Query()

	request.MinX, err = strconv.ParseFloat(query.Get("min_x"), 64)
	if err != nil {
		api.BadRequestResponse(w, r, errors.New("min_x is required and must be a valid float"))
		return
	}
	request.MinY, err = strconv.ParseFloat(query.Get("min_y"), 64)
	if err != nil {
		api.BadRequestResponse(w, r, errors.New("min_y is required and must be a valid float"))
		return
	}
	request.MaxX, err = strconv.ParseFloat(query.Get("max_x"), 64)
	if err != nil {
		api.BadRequestResponse(w, r, errors.New("max_x is required and must be a valid float"))
		return
	}
	request.MaxY, err = strconv.ParseFloat(query.Get("max_y"), 64)
	if err != nil {
		api.BadRequestResponse(w, r, errors.New("max_y is required and must be a valid float"))
		return
	}
	if l := query.Get("limit"); l != "" {
		request.Limit, err = strconv.Atoi(l)
		if err != nil {
			api.BadRequestResponse(w, r, errors.New("limit must be a valid int"))
			return
		}
	}

	if err := api.validate(request); err != nil {
		api.BadRequestResponse(w, r, err)
		return
	}

	bb := datastructure.NewBoundingBox(request.MinX, request.MinY, request.MaxX, request.MaxY)
	roads, err := api.mapMatcherService.RoadsInBoundingBox(r.Context(), bb, request.Limit)
	if err != nil {
		api.getStatusCode(w, r, err)
		return
	}

	headers := make(http.Header)
	if err := api.writeJSON(w, http.StatusOK, envelope{"data": NewRoadsResponse(roads)}, headers); err != nil {
		api.ServerErrorResponse(w, r, err)
		return
	}
}

// matchStoredTrajectory godoc
//
//	@Summary		match a trajectory stored in the trajectory table
//	@Produce		json
//	@Param			id	path		int	true	"trajectory id"
//	@Success		200	{object}	mapMatchResponse
//	@Failure		404	{object}	errorResponse
//	@Failure		422	{object}	errorResponse
//	@Router			/trajectories/{id}/match [get]
func (api *mapMatchAPI) matchStoredTrajectory(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	id, err := strconv.ParseUint(p.ByName("id"), 10, 64)
	if err != nil {
		api.BadRequestResponse(w, r, errors.New("id must be a valid unsigned int"))
		return
	}

	matched, cached, err := api.mapMatcherService.MatchStoredTrajectory(r.Context(), id)
	if err != nil {
		api.getStatusCode(w, r, err)
		return
	}

	headers := make(http.Header)
	if err := api.writeJSON(w, http.StatusOK, envelope{"data": NewMapMatchResponse(matched, cached)}, headers); err != nil {
		api.ServerErrorResponse(w, r, err)
		return
	}
}
