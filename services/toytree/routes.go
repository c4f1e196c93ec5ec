// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package toytree

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts the toytree API under rg.
//
// Description:
//
//	Binds every endpoint:
//	  POST   /trees                   - parse Newick into a session
//	  GET    /trees/:id               - session summary
//	  GET    /trees/:id/nodes         - idx-ordered node table
//	  GET    /trees/:id/newick        - canonical Newick text
//	  DELETE /trees/:id               - drop a session
//	  POST   /trees/:id/reroot        - reroot on a named node
//	  POST   /trees/:id/unroot        - collapse the root edge
//	  POST   /trees/:id/drop_tips     - remove named tips
//	  POST   /trees/:id/ladderize     - reorder children by clade size
//	  POST   /trees/:id/resolve       - resolve polytomies
//	  POST   /trees/:id/collapse      - collapse internal edges
//	  GET    /trees/:id/patristic     - single tip-pair distance
//	  GET    /trees/:id/matrix        - patristic or topological matrix
//	  POST   /distance/rf             - Robinson-Foulds distance
//	  POST   /distance/quartet        - quartet distance
//	  POST   /distance/consensus      - majority-rule consensus
//	  POST   /random                  - generate a tree
//	  PUT    /bank/trees/:name        - persist a tree
//	  GET    /bank/trees/:name        - fetch canonical Newick
//	  DELETE /bank/trees/:name        - remove a stored tree
//	  GET    /bank/trees              - list stored trees
//	  GET    /bank/stats              - bank summary counts
//
// Inputs:
//
//	rg - Router group to mount under (e.g. /v1/toytree).
//	h - Bound handlers.
func RegisterRoutes(rg *gin.RouterGroup, h *Handlers) {
	trees := rg.Group("/trees")
	{
		trees.POST("", h.ParseTree)
		trees.GET("/:id", h.GetTree)
		trees.GET("/:id/nodes", h.GetNodes)
		trees.GET("/:id/newick", h.GetNewick)
		trees.DELETE("/:id", h.DeleteTree)
		trees.POST("/:id/reroot", h.Reroot)
		trees.POST("/:id/unroot", h.Unroot)
		trees.POST("/:id/drop_tips", h.DropTips)
		trees.POST("/:id/ladderize", h.Ladderize)
		trees.POST("/:id/resolve", h.Resolve)
		trees.POST("/:id/collapse", h.Collapse)
		trees.GET("/:id/patristic", h.Patristic)
		trees.GET("/:id/matrix", h.Matrix)
	}

	dist := rg.Group("/distance")
	{
		dist.POST("/rf", h.RobinsonFoulds)
		dist.POST("/quartet", h.Quartet)
		dist.POST("/consensus", h.Consensus)
	}

	rg.POST("/random", h.RandomTree)

	bank := rg.Group("/bank")
	{
		bank.GET("/trees", h.BankList)
		bank.GET("/stats", h.BankStats)
		bank.PUT("/trees/:name", h.BankPut)
		bank.GET("/trees/:name", h.BankGet)
		bank.DELETE("/trees/:name", h.BankDelete)
	}
}
