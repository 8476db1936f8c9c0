// Copyright (C) 2026 ChatMate Labs (oss@chatmate.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package routes wires the gateway's HTTP surface onto a gin router.
package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/chatmate-ai/chatmate/services/gateway/handlers"
	"github.com/chatmate-ai/chatmate/services/llm"
)

// SetupRoutes registers every gateway endpoint.
//
// # Description
//
// Mounts the streaming chat relay, the attachment helpers, and the
// operational endpoints (health, metrics). The bare /chat route is an
// alias kept for browser clients that predate the v1 prefix.
//
// # Inputs
//   - router: the gin engine to register routes on.
//   - llmClient: the upstream model client injected into the chat handler.
func SetupRoutes(router *gin.Engine, llmClient llm.LLMClient) {
	chatHandler := handlers.NewChatStreamHandler(llmClient)

	router.GET("/health", handlers.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Legacy alias for the original chat page.
	router.POST("/chat", chatHandler.HandleChatStream)

	v1 := router.Group("/v1")
	{
		v1.POST("/chat/stream", chatHandler.HandleChatStream)
		v1.POST("/chat/pdf-text", handlers.HandlePDFText)
		v1.POST("/upload", handlers.HandleUpload)
	}
}
