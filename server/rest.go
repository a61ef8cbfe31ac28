// Copyright 2026 nopo Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	restfulspec "github.com/emicklei/go-restful-openapi/v2"
	"github.com/emicklei/go-restful/v3"
	"github.com/google/uuid"
	"github.com/juju/errors"
	"github.com/nopo-io/nopo/base/log"
	"github.com/nopo-io/nopo/config"
	"github.com/nopo-io/nopo/logics"
	"github.com/nopo-io/nopo/model"
	"github.com/nopo-io/nopo/storage/data"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/emicklei/go-restful/otelrestful"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
)

const healthPath = "/api/health/"

// RestServer implements a REST-ful API server.
type RestServer struct {
	Config         *config.Config
	DataClient     data.Database
	HttpHost       string
	HttpPort       int
	WebService     *restful.WebService
	HttpServer     *http.Server
	TracerProvider trace.TracerProvider
}

func (s *RestServer) recommender() *logics.Recommender {
	return logics.NewRecommender(s.DataClient, s.Config.Recommend)
}

// NewHttpServer registers REST-ful APIs, API docs and metrics on the container and creates an
// HTTP server without starting it.
func (s *RestServer) NewHttpServer(container *restful.Container) *http.Server {
	// register restful APIs
	s.CreateWebService()
	container.Add(s.WebService)
	// register API docs
	specConfig := restfulspec.Config{
		WebServices: container.RegisteredWebServices(),
		APIPath:     "/apidocs.json",
	}
	container.Add(restfulspec.NewOpenAPIService(specConfig))
	// register prometheus
	container.Handle("/metrics", promhttp.Handler())
	return &http.Server{
		Addr:    fmt.Sprintf("%s:%d", s.HttpHost, s.HttpPort),
		Handler: container,
	}
}

// RequestIdFilter assigns a request id to every request and echoes it in the response.
func RequestIdFilter(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
	requestId := req.HeaderParameter(log.RequestIDHeader)
	if requestId == "" {
		requestId = uuid.NewString()
	}
	resp.Header().Set(log.RequestIDHeader, requestId)
	chain.ProcessFilter(req, resp)
}

// LogFilter logs requests and records request metrics.
func LogFilter(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
	startTime := time.Now()
	chain.ProcessFilter(req, resp)
	route := req.SelectedRoutePath()
	RequestsTotal.WithLabelValues(route, strconv.Itoa(resp.StatusCode())).Inc()
	RequestSeconds.WithLabelValues(route).Observe(time.Since(startTime).Seconds())
	if !strings.HasPrefix(req.Request.URL.Path, healthPath) {
		log.ResponseLogger(resp).Info(fmt.Sprintf("%s %s", req.Request.Method, req.Request.URL),
			zap.Int("status_code", resp.StatusCode()),
			zap.Duration("duration", time.Since(startTime)))
	}
}

// AuthFilter rejects requests without the API key if one is configured. Health checks are open.
func (s *RestServer) AuthFilter(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
	if strings.HasPrefix(req.Request.URL.Path, healthPath) || s.auth(req, resp) {
		chain.ProcessFilter(req, resp)
	}
}

// CreateWebService creates web service.
func (s *RestServer) CreateWebService() {
	if s.TracerProvider == nil {
		s.TracerProvider = noop.NewTracerProvider()
	}
	// Create a server
	ws := s.WebService
	ws.Consumes(restful.MIME_JSON).Produces(restful.MIME_JSON)
	ws.Path("/api/")
	ws.Filter(RequestIdFilter)
	ws.Filter(LogFilter)
	ws.Filter(otelrestful.OTelFilter("nopo", otelrestful.WithTracerProvider(s.TracerProvider)))
	ws.Filter(s.AuthFilter)

	/* Recommendations */

	ws.Route(ws.GET("/blend/{user-id}/{azti-type}").To(s.getBlend).
		Doc("Get blended recommendations for a user.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"recommendation"}).
		Param(ws.HeaderParameter("X-API-Key", "secret key for RESTful API")).
		Param(ws.PathParameter("user-id", "identifier of the user").DataType("string")).
		Param(ws.PathParameter("azti-type", "azti type of the user").DataType("string")).
		Writes(BlendResponse{}))
	ws.Route(ws.GET("/cbf/{azti-type}").To(s.getContentBased).
		Doc("Get restaurants similar to an azti type.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"recommendation"}).
		Param(ws.HeaderParameter("X-API-Key", "secret key for RESTful API")).
		Param(ws.PathParameter("azti-type", "azti type of the user").DataType("string")).
		Writes(ContentBasedResponse{}))
	ws.Route(ws.GET("/cf/{restaurant-id}").To(s.getItemCollaborative).
		Doc("Get restaurants rated similarly to a restaurant.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"recommendation"}).
		Param(ws.HeaderParameter("X-API-Key", "secret key for RESTful API")).
		Param(ws.PathParameter("restaurant-id", "identifier of the restaurant").DataType("integer")).
		Writes(ItemCollaborativeResponse{}))
	ws.Route(ws.GET("/mf/{user-id}").To(s.getMatrixFactorization).
		Doc("Get restaurants with the highest predicted ratings for a user.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"recommendation"}).
		Param(ws.HeaderParameter("X-API-Key", "secret key for RESTful API")).
		Param(ws.PathParameter("user-id", "identifier of the user").DataType("string")).
		Writes(MatrixFactorizationResponse{}))

	/* Curated lists */

	ws.Route(ws.GET("/restaurants/developer").To(s.getDeveloperPicks).
		Doc("Get restaurants picked by developers.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"restaurant"}).
		Param(ws.HeaderParameter("X-API-Key", "secret key for RESTful API")).
		Writes(DeveloperResponse{}))
	ws.Route(ws.GET("/restaurants/youtuber").To(s.getYoutuberPicks).
		Doc("Get restaurants featured by youtubers.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"restaurant"}).
		Param(ws.HeaderParameter("X-API-Key", "secret key for RESTful API")).
		Writes(YoutuberResponse{}))
	ws.Route(ws.GET("/restaurants/thirty").To(s.getThirtyYears).
		Doc("Get restaurants open for more than thirty years.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"restaurant"}).
		Param(ws.HeaderParameter("X-API-Key", "secret key for RESTful API")).
		Writes(ThirtyResponse{}))
	ws.Route(ws.GET("/restaurants/liked").To(s.getMostLiked).
		Doc("Get the most liked restaurants.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"restaurant"}).
		Param(ws.HeaderParameter("X-API-Key", "secret key for RESTful API")).
		Writes(LikedResponse{}))
	ws.Route(ws.POST("/restaurants/location").To(s.getNearby).
		Doc("Get restaurants around a location.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"restaurant"}).
		Param(ws.HeaderParameter("X-API-Key", "secret key for RESTful API")).
		Reads(Location{}).
		Writes(LocationResponse{}))
	ws.Route(ws.GET("/restaurant/{restaurant-id}/reviews").To(s.getRestaurantReviews).
		Doc("Get reviews of a restaurant.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"restaurant"}).
		Param(ws.HeaderParameter("X-API-Key", "secret key for RESTful API")).
		Param(ws.PathParameter("restaurant-id", "identifier of the restaurant").DataType("integer")).
		Writes([]data.ReviewDetail{}))

	/* Health check */

	ws.Route(ws.GET("/health/live").To(s.checkLive).
		Doc("Probe the liveness of this node.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"health"}).
		Writes(HealthStatus{}))
	ws.Route(ws.GET("/health/ready").To(s.checkReady).
		Doc("Probe the readiness of this node.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"health"}).
		Writes(HealthStatus{}))
}

type BlendResponse struct {
	RecomList []logics.RatedRestaurant `json:"recomList"`
}

type ContentBasedResponse struct {
	RecommendCbfList []model.Recommendation `json:"recommendCbfList"`
}

type ItemCollaborativeResponse struct {
	RecommendCfList []logics.RatedRestaurant `json:"recommendCfList"`
}

type MatrixFactorizationResponse struct {
	RecommendMfList []data.Restaurant `json:"recommendMfList"`
}

type DeveloperResponse struct {
	DevList []logics.CuratedRestaurant `json:"devList"`
}

type YoutuberResponse struct {
	YouList []logics.CuratedRestaurant `json:"youList"`
}

type ThirtyResponse struct {
	ThirList []logics.CuratedRestaurant `json:"thirList"`
}

type LikedResponse struct {
	LikeList []logics.CuratedRestaurant `json:"likeList"`
}

type LocationResponse struct {
	LocList []data.Restaurant `json:"locList"`
}

// Location is a pair of coordinates. Coordinates may be sent as numbers or numeric strings.
type Location struct {
	LocationX json.Number `json:"location_x"`
	LocationY json.Number `json:"location_y"`
}

type HealthStatus struct {
	Ready          bool   `json:"ready"`
	DataStoreError string `json:"data_store_error,omitempty"`
}

// ParseInt64 parses an integer from the path parameter.
func ParseInt64(request *restful.Request, name string) (int64, error) {
	value, err := strconv.ParseInt(request.PathParameter(name), 10, 64)
	if err != nil {
		return 0, errors.NotValidf("%s %q", name, request.PathParameter(name))
	}
	return value, nil
}

func (s *RestServer) getBlend(request *restful.Request, response *restful.Response) {
	ctx := request.Request.Context()
	userId := request.PathParameter("user-id")
	aztiType := request.PathParameter("azti-type")
	restaurants, err := s.recommender().Blend(ctx, userId, aztiType)
	if err != nil {
		Error(response, err)
		return
	}
	Ok(response, BlendResponse{RecomList: restaurants})
}

func (s *RestServer) getContentBased(request *restful.Request, response *restful.Response) {
	ctx := request.Request.Context()
	recommendations, err := s.recommender().ContentBased(ctx, request.PathParameter("azti-type"))
	if err != nil {
		Error(response, err)
		return
	}
	Ok(response, ContentBasedResponse{RecommendCbfList: recommendations})
}

func (s *RestServer) getItemCollaborative(request *restful.Request, response *restful.Response) {
	ctx := request.Request.Context()
	restaurantId, err := ParseInt64(request, "restaurant-id")
	if err != nil {
		BadRequest(response, err)
		return
	}
	restaurants, err := s.recommender().ItemCollaborative(ctx, restaurantId)
	if err != nil {
		Error(response, err)
		return
	}
	Ok(response, ItemCollaborativeResponse{RecommendCfList: restaurants})
}

func (s *RestServer) getMatrixFactorization(request *restful.Request, response *restful.Response) {
	ctx := request.Request.Context()
	restaurants, err := s.recommender().MatrixFactorization(ctx, request.PathParameter("user-id"))
	if err != nil {
		Error(response, err)
		return
	}
	Ok(response, MatrixFactorizationResponse{RecommendMfList: restaurants})
}

func (s *RestServer) getDeveloperPicks(request *restful.Request, response *restful.Response) {
	restaurants, err := s.recommender().DeveloperPicks(request.Request.Context())
	if err != nil {
		Error(response, err)
		return
	}
	Ok(response, DeveloperResponse{DevList: restaurants})
}

func (s *RestServer) getYoutuberPicks(request *restful.Request, response *restful.Response) {
	restaurants, err := s.recommender().YoutuberPicks(request.Request.Context())
	if err != nil {
		Error(response, err)
		return
	}
	Ok(response, YoutuberResponse{YouList: restaurants})
}

func (s *RestServer) getThirtyYears(request *restful.Request, response *restful.Response) {
	restaurants, err := s.recommender().ThirtyYears(request.Request.Context())
	if err != nil {
		Error(response, err)
		return
	}
	Ok(response, ThirtyResponse{ThirList: restaurants})
}

func (s *RestServer) getMostLiked(request *restful.Request, response *restful.Response) {
	restaurants, err := s.recommender().MostLiked(request.Request.Context())
	if err != nil {
		Error(response, err)
		return
	}
	Ok(response, LikedResponse{LikeList: restaurants})
}

func (s *RestServer) getNearby(request *restful.Request, response *restful.Response) {
	var location Location
	if err := request.ReadEntity(&location); err != nil {
		BadRequest(response, err)
		return
	}
	x, err := location.LocationX.Float64()
	if err != nil {
		BadRequest(response, errors.NotValidf("location_x %q", location.LocationX))
		return
	}
	y, err := location.LocationY.Float64()
	if err != nil {
		BadRequest(response, errors.NotValidf("location_y %q", location.LocationY))
		return
	}
	restaurants, err := s.recommender().Nearby(request.Request.Context(), x, y)
	if err != nil {
		Error(response, err)
		return
	}
	Ok(response, LocationResponse{LocList: restaurants})
}

func (s *RestServer) getRestaurantReviews(request *restful.Request, response *restful.Response) {
	restaurantId, err := ParseInt64(request, "restaurant-id")
	if err != nil {
		BadRequest(response, err)
		return
	}
	reviews, err := s.recommender().RestaurantReviews(request.Request.Context(), restaurantId)
	if err != nil {
		Error(response, err)
		return
	}
	Ok(response, reviews)
}

func (s *RestServer) checkLive(_ *restful.Request, response *restful.Response) {
	Ok(response, HealthStatus{Ready: true})
}

func (s *RestServer) checkReady(_ *restful.Request, response *restful.Response) {
	if err := s.DataClient.Ping(); err != nil {
		log.ResponseLogger(response).Error("data store is not ready", zap.Error(err))
		response.Header().Set("Access-Control-Allow-Origin", "*")
		if err = response.WriteHeaderAndJson(http.StatusServiceUnavailable,
			HealthStatus{DataStoreError: err.Error()}, restful.MIME_JSON); err != nil {
			log.ResponseLogger(response).Error("failed to write json", zap.Error(err))
		}
		return
	}
	Ok(response, HealthStatus{Ready: true})
}

// Error maps an error to a status code: not found to 404, invalid input to 400 and others to 500.
func Error(response *restful.Response, err error) {
	switch {
	case errors.IsNotFound(err):
		PageNotFound(response, err)
	case errors.IsNotValid(err):
		BadRequest(response, err)
	default:
		InternalServerError(response, err)
	}
}

// BadRequest returns a bad request error.
func BadRequest(response *restful.Response, err error) {
	response.Header().Set("Access-Control-Allow-Origin", "*")
	log.ResponseLogger(response).Error("bad request", zap.Error(err))
	if err = response.WriteError(http.StatusBadRequest, err); err != nil {
		log.ResponseLogger(response).Error("failed to write error", zap.Error(err))
	}
}

// InternalServerError returns a internal server error.
func InternalServerError(response *restful.Response, err error) {
	response.Header().Set("Access-Control-Allow-Origin", "*")
	log.ResponseLogger(response).Error("internal server error", zap.Error(err))
	if err = response.WriteError(http.StatusInternalServerError, err); err != nil {
		log.ResponseLogger(response).Error("failed to write error", zap.Error(err))
	}
}

// PageNotFound returns a not found error.
func PageNotFound(response *restful.Response, err error) {
	response.Header().Set("Access-Control-Allow-Origin", "*")
	if err := response.WriteError(http.StatusNotFound, err); err != nil {
		log.ResponseLogger(response).Error("failed to write error", zap.Error(err))
	}
}

// Ok sends the content as JSON to the client.
func Ok(response *restful.Response, content any) {
	response.Header().Set("Access-Control-Allow-Origin", "*")
	if err := response.WriteAsJson(content); err != nil {
		log.ResponseLogger(response).Error("failed to write json", zap.Error(err))
	}
}

func (s *RestServer) auth(request *restful.Request, response *restful.Response) bool {
	if s.Config.Server.APIKey == "" {
		return true
	}
	apikey := request.HeaderParameter("X-API-Key")
	if apikey == s.Config.Server.APIKey {
		return true
	}
	log.ResponseLogger(response).Error("unauthorized", zap.String("X-API-Key", apikey))
	if err := response.WriteError(http.StatusUnauthorized, fmt.Errorf("unauthorized")); err != nil {
		log.ResponseLogger(response).Error("failed to write error", zap.Error(err))
	}
	return false
}
