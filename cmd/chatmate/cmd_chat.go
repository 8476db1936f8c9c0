// Copyright (C) 2026 ChatMate Labs (oss@chatmate.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/chatmate-ai/chatmate/pkg/chatclient"
	"github.com/chatmate-ai/chatmate/pkg/logging"
	"github.com/chatmate-ai/chatmate/pkg/ux"
)

func newLogger() *logging.Logger {
	return logging.New(logging.Config{
		Level:   logging.LevelInfo,
		LogDir:  logDir,
		Service: "cli",
		Quiet:   logDir != "",
	})
}

func runChatCommand(cmd *cobra.Command, args []string) {
	logger := newLogger()
	defer logger.Close()

	consumer := chatclient.NewStreamConsumer(chatclient.StreamConsumerConfig{BaseURL: serverURL})
	conv := chatclient.NewGreetedConversation(consumer)

	if ux.InteractiveTerminal() {
		ux.Title("ChatMate")
		ux.Muted("Type a message, or \"exit\" to leave. Ctrl+C stops the current reply.")
	}
	fmt.Println(ux.AssistantLabel() + chatclient.Greeting)

	// The first turn may carry an attachment from --attach.
	pendingAttachment, err := loadPendingAttachment()
	if err != nil {
		ux.Error(err.Error())
		return
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print(ux.UserPrompt())
		if !scanner.Scan() {
			fmt.Println()
			return
		}
		input := strings.TrimSpace(scanner.Text())
		switch input {
		case "":
			if pendingAttachment == nil {
				continue
			}
		case "exit", "quit":
			ux.Muted("Bye.")
			return
		}

		opts := chatclient.SendOptions{
			Model:      modelName,
			System:     systemPrompt,
			Attachment: pendingAttachment,
		}
		pendingAttachment = nil

		runExchange(conv, input, opts, sigCh, logger)
	}
}

// runExchange streams one reply, printing chunks as they arrive. A
// SIGINT during the exchange aborts only that exchange.
func runExchange(conv *chatclient.Conversation, input string, opts chatclient.SendOptions, sigCh <-chan os.Signal, logger *logging.Logger) {
	// Discard any interrupt that arrived while the user sat at the
	// prompt; it must not abort the exchange that is about to start.
	select {
	case <-sigCh:
	default:
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-done:
		}
	}()

	fmt.Print(ux.AssistantLabel())
	result, err := conv.Send(ctx, input, opts, func(chunk string) {
		fmt.Print(chunk)
	})
	close(done)
	fmt.Println()

	switch {
	case err == nil:
	case errors.Is(err, context.Canceled):
		ux.Muted(chatclient.StoppedMessage)
	case errors.Is(err, chatclient.ErrBusy):
		ux.Warning("A reply is already in progress.")
	default:
		ux.Error(err.Error())
		logger.Error("exchange failed", "error", err.Error())
	}

	if result != nil {
		logger.Info("exchange finished",
			"state", result.State.String(),
			"chunks", result.Chunks,
			"duration_ms", result.Duration.Milliseconds(),
		)
	}
}

func loadPendingAttachment() (*chatclient.Attachment, error) {
	if attachPath == "" {
		return nil, nil
	}
	attachment, err := LoadAttachment(attachPath, serverURL)
	if err != nil {
		return nil, fmt.Errorf("failed to attach %s: %w", attachPath, err)
	}
	ux.Success(fmt.Sprintf("Attached %s", attachment.Name))
	return attachment, nil
}
