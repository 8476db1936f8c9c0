// Copyright (C) 2026 ChatMate Labs (oss@chatmate.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	serverURL    string
	modelName    string
	systemPrompt string
	attachPath   string
	logDir       string

	rootCmd = &cobra.Command{
		Use:   "chatmate",
		Short: "A cli for chatting with the ChatMate gateway",
		Long: `ChatMate streams assistant replies from a ChatMate gateway,
with optional image and document attachments.`,
	}

	chatCmd = &cobra.Command{
		Use:   "chat",
		Short: "Starts an interactive chat session",
		Run:   runChatCommand,
	}

	askCmd = &cobra.Command{
		Use:   "ask [question]",
		Short: "Asks a single question and prints the streamed reply",
		Args:  cobra.MinimumNArgs(1),
		Run:   runAskCommand,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", defaultServerURL(), "Base URL of the ChatMate gateway")
	rootCmd.PersistentFlags().StringVar(&modelName, "model", "", "Model to use (defaults to the gateway's default)")
	rootCmd.PersistentFlags().StringVar(&systemPrompt, "system", "", "Override the system prompt")
	rootCmd.PersistentFlags().StringVar(&logDir, "log-dir", "", "Directory for JSON log files (disabled when empty)")

	chatCmd.Flags().StringVar(&attachPath, "attach", "", "File to attach to the first message")
	askCmd.Flags().StringVar(&attachPath, "attach", "", "File to attach to the question")

	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(askCmd)
}

func defaultServerURL() string {
	if url := os.Getenv("CHATMATE_SERVER"); url != "" {
		return url
	}
	return "http://localhost:8080"
}
