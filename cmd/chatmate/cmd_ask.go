// Copyright (C) 2026 ChatMate Labs (oss@chatmate.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/chatmate-ai/chatmate/pkg/chatclient"
	"github.com/chatmate-ai/chatmate/pkg/ux"
)

func runAskCommand(cmd *cobra.Command, args []string) {
	logger := newLogger()
	defer logger.Close()

	question := strings.Join(args, " ")

	attachment, err := loadPendingAttachment()
	if err != nil {
		ux.Error(err.Error())
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		cancel()
	}()

	consumer := chatclient.NewStreamConsumer(chatclient.StreamConsumerConfig{BaseURL: serverURL})
	conv := chatclient.NewConversation(consumer)

	opts := chatclient.SendOptions{
		Model:      modelName,
		System:     systemPrompt,
		Attachment: attachment,
	}

	result, err := conv.Send(ctx, question, opts, func(chunk string) {
		fmt.Print(chunk)
	})
	fmt.Println()

	if err != nil {
		logger.Error("ask failed", "error", err.Error(), "state", resultState(result).String())
		os.Exit(1)
	}
}

// resultState reports the terminal state for logging. Send returns a nil
// result when it rejects the exchange up front, for example while another
// exchange is still running.
func resultState(result *chatclient.StreamResult) chatclient.SessionState {
	if result == nil {
		return chatclient.StateIdle
	}
	return result.State
}
