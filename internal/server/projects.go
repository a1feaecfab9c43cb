/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"goscreenwriter/internal/backend"
	"goscreenwriter/internal/domain"
	"goscreenwriter/internal/pagination"
	"goscreenwriter/internal/storage"
	"goscreenwriter/internal/validate"
)

type SaveScriptRequest struct {
	Name       string            `json:"name"`
	Screenplay domain.Screenplay `json:"screenplay"`
}

func storeStatus(err error) int {
	if errors.Is(err, backend.ErrNotFound) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func (s *Server) listProjects(c *gin.Context) {
	list, err := s.opts.Store.ListProjects(c.Request.Context())
	if err != nil {
		abortError(c, storeStatus(err), err)
		return
	}
	if list == nil {
		list = []backend.ProjectInfo{}
	}
	c.JSON(http.StatusOK, list)
}

func (s *Server) loadScript(c *gin.Context) {
	sp, info, err := s.opts.Store.LoadScript(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortError(c, storeStatus(err), err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"project": info, "screenplay": sp})
}

func (s *Server) saveScript(c *gin.Context) {
	var req SaveScriptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortError(c, http.StatusBadRequest, err)
		return
	}
	if err := validate.Validate(req.Screenplay.Elements); err != nil {
		abortInvalid(c, err)
		return
	}
	id := c.Param("id")
	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = id
	}
	v, err := s.opts.Store.SaveScript(c.Request.Context(), id, name, req.Screenplay)
	if err != nil {
		abortError(c, storeStatus(err), err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"version": v})
}

// paginateStored paginates the stored script and keeps the page map.
func (s *Server) paginateStored(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")
	sp, _, err := s.opts.Store.LoadScript(ctx, id)
	if err != nil {
		abortError(c, storeStatus(err), err)
		return
	}
	sceneNumbers, _ := strconv.ParseBool(c.Query("sceneNumbers"))
	start := time.Now()
	res := pagination.New(pagination.Options{SceneNumbers: sceneNumbers}).Paginate(sp.Elements)
	s.opts.Telemetry.Paginate(len(sp.Elements), res.PageCount, time.Since(start))
	if err := s.opts.Store.SavePageMap(ctx, id, res); err != nil {
		abortError(c, storeStatus(err), err)
		return
	}
	c.JSON(http.StatusOK, PaginateResponse{
		PageCount: res.PageCount,
		PageMap:   res.PageMap,
		Flags:     res.Flags,
		Elements:  res.Annotate(sp.Elements),
	})
}

func (s *Server) searchStored(c *gin.Context) {
	q := storage.SearchQuery{
		Text:    c.Query("q"),
		Speaker: c.Query("speaker"),
		Scene:   c.Query("scene"),
	}
	if t := c.Query("types"); t != "" {
		q.Types = strings.Split(t, ",")
	}
	q.PageFrom, _ = strconv.Atoi(c.Query("pageFrom"))
	q.PageTo, _ = strconv.Atoi(c.Query("pageTo"))
	q.Limit, _ = strconv.Atoi(c.Query("limit"))
	q.Offset, _ = strconv.Atoi(c.Query("offset"))
	res, err := s.opts.Store.SearchPG(c.Request.Context(), c.Param("id"), q)
	if err != nil {
		abortError(c, storeStatus(err), err)
		return
	}
	if res == nil {
		res = []storage.SearchResult{}
	}
	c.JSON(http.StatusOK, res)
}
