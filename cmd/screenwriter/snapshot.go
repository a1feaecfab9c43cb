/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	cli "github.com/urfave/cli/v3"

	"goscreenwriter/internal/pagination"
	"goscreenwriter/internal/storage"
)

func snapshotCommand() *cli.Command {
	return &cli.Command{
		Name:  "snapshot",
		Usage: "Saves, lists, restores and prunes screenplay snapshots",
		Commands: []*cli.Command{
			{
				Name:         "save",
				Usage:        "Stores the current screenplay",
				ArgsUsage:    "DIR",
				Flags:        []cli.Flag{&cli.StringFlag{Name: "label", Aliases: []string{"l"}, Usage: "snapshot `LABEL`"}},
				OnUsageError: usageErrorHandler,
				Action:       runSnapshotSave,
			},
			{
				Name:         "list",
				Usage:        "Lists snapshots, newest first",
				ArgsUsage:    "DIR",
				Flags:        []cli.Flag{&cli.IntFlag{Name: "limit", Value: 20, Usage: "at most `N` entries"}},
				OnUsageError: usageErrorHandler,
				Action:       runSnapshotList,
			},
			{
				Name:         "restore",
				Usage:        "Replaces the screenplay with a snapshot; the current one is backed up",
				ArgsUsage:    "DIR ID",
				OnUsageError: usageErrorHandler,
				Action:       runSnapshotRestore,
			},
			{
				Name:         "prune",
				Usage:        "Deletes all but the newest snapshots",
				ArgsUsage:    "DIR",
				Flags:        []cli.Flag{&cli.IntFlag{Name: "keep", Value: 10, Usage: "keep `N` snapshots"}},
				OnUsageError: usageErrorHandler,
				Action:       runSnapshotPrune,
			},
		},
	}
}

func runSnapshotSave(ctx context.Context, cmd *cli.Command) error {
	env := envFromContext(ctx)
	ph, err := env.openProject(cmd)
	if err != nil {
		return err
	}
	label := cmd.String("label")
	if label == "" {
		label = time.Now().Format("2006-01-02 15:04")
	}
	pages := pagination.New(pagination.Options{}).Paginate(ph.Elements()).PageCount
	id, err := storage.SaveScriptSnapshot(ctx, ph, label, pages, time.Now())
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout(cmd), "snapshot %d saved (%d pages)\n", id, pages)
	return nil
}

func runSnapshotList(ctx context.Context, cmd *cli.Command) error {
	env := envFromContext(ctx)
	ph, err := env.openProject(cmd)
	if err != nil {
		return err
	}
	list, err := storage.ListScriptSnapshots(ctx, ph, int(cmd.Int("limit")))
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(stdout(cmd), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTAKEN\tPAGES\tELEMENTS\tLABEL")
	for _, s := range list {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%s\n", s.ID, s.TS.Local().Format("2006-01-02 15:04:05"), s.Pages, len(s.Screenplay.Elements), s.Label)
	}
	return tw.Flush()
}

func runSnapshotRestore(ctx context.Context, cmd *cli.Command) error {
	env := envFromContext(ctx)
	arg := cmd.Args().Get(1)
	if arg == "" {
		return errors.New("restore: snapshot id is required")
	}
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return fmt.Errorf("restore: bad snapshot id %q", arg)
	}
	ph, err := env.openProject(cmd)
	if err != nil {
		return err
	}
	if err := storage.RestoreScriptSnapshot(ctx, ph, id); err != nil {
		return err
	}
	env.log.Info("snapshot restored", "id", id, "root", ph.Root)
	fmt.Fprintf(stdout(cmd), "restored snapshot %d (%d elements)\n", id, len(ph.Elements()))
	return nil
}

func runSnapshotPrune(ctx context.Context, cmd *cli.Command) error {
	env := envFromContext(ctx)
	ph, err := env.openProject(cmd)
	if err != nil {
		return err
	}
	n, err := storage.PruneOldScriptSnapshots(ctx, ph, int(cmd.Int("keep")))
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout(cmd), "%d snapshots deleted\n", n)
	return nil
}
