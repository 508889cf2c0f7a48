package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"time"

	"daybook/internal/config"
	"daybook/internal/patterns"
	"daybook/internal/types"

	"github.com/spf13/cobra"
)

func newCheckinCmd() *cobra.Command {
	var date, focus string
	var energy int
	var mind, blockers []string

	cmd := &cobra.Command{
		Use:   "checkin",
		Short: "Record the morning check-in that opens today's session",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.close()

			session, err := a.planner.MorningCheckIn(cmd.Context(), today(date), types.MorningContext{
				EnergyLevel:   energy,
				TopOfMind:     mind,
				IntendedFocus: focus,
				Blockers:      blockers,
			})
			if err != nil {
				return err
			}
			fmt.Printf("Session %s opened (energy %d, focus %q)\n",
				session.Date, session.Morning.EnergyLevel, session.Morning.IntendedFocus)

			if list, err := a.planner.DayTasks(cmd.Context(), session.Date); err == nil && len(list) > 0 {
				fmt.Println("Today's tasks:")
				for _, t := range list {
					fmt.Printf("  %-12s  %-10s  %s\n", t.ID, t.Status, t.Title)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "session date (default today)")
	cmd.Flags().IntVar(&energy, "energy", 3, "energy level 1-5")
	cmd.Flags().StringVar(&focus, "focus", "", "intended focus for the day")
	cmd.Flags().StringArrayVar(&mind, "mind", nil, "top-of-mind item (repeatable)")
	cmd.Flags().StringArrayVar(&blockers, "blocker", nil, "current blocker (repeatable)")
	cmd.MarkFlagRequired("focus")
	return cmd
}

func newReflectCmd() *cobra.Command {
	var date, focus, tomorrow string
	var wins, challenges, energy []string

	cmd := &cobra.Command{
		Use:   "reflect",
		Short: "Record the evening reflection that closes a session",
		RunE: func(cmd *cobra.Command, args []string) error {
			day := today(date)
			samples, err := parseEnergySamples(day, energy)
			if err != nil {
				return err
			}

			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.close()

			session, err := a.planner.EveningReflection(cmd.Context(), day, types.EveningReflection{
				ActualFocus:    focus,
				Wins:           wins,
				Challenges:     challenges,
				TomorrowIntent: tomorrow,
				EnergyPattern:  samples,
			})
			if err != nil {
				return err
			}
			fmt.Printf("Session %s closed\n", session.Date)
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "session date (default today)")
	cmd.Flags().StringVar(&focus, "focus", "", "what the day actually went to")
	cmd.Flags().StringArrayVar(&wins, "win", nil, "a win (repeatable)")
	cmd.Flags().StringArrayVar(&challenges, "challenge", nil, "a challenge (repeatable)")
	cmd.Flags().StringArrayVar(&energy, "energy", nil, "energy sample as HH:MM=level (repeatable)")
	cmd.Flags().StringVar(&tomorrow, "tomorrow", "", "intent for tomorrow")
	cmd.MarkFlagRequired("focus")
	return cmd
}

// parseEnergySamples turns HH:MM=level specs into samples timestamped on the
// session date.
func parseEnergySamples(date string, specs []string) ([]types.EnergySample, error) {
	if len(specs) == 0 {
		return nil, nil
	}
	day, err := time.Parse(types.DateLayout, date)
	if err != nil {
		return nil, fmt.Errorf("invalid session date %q: %w", date, err)
	}

	samples := make([]types.EnergySample, 0, len(specs))
	for _, spec := range specs {
		clock, levelStr, ok := strings.Cut(spec, "=")
		if !ok {
			return nil, fmt.Errorf("energy sample %q must be HH:MM=level", spec)
		}
		at, err := time.Parse("15:04", clock)
		if err != nil {
			return nil, fmt.Errorf("energy sample %q has a bad time: %w", spec, err)
		}
		level, err := strconv.Atoi(levelStr)
		if err != nil || level < 1 || level > 5 {
			return nil, fmt.Errorf("energy sample %q needs a level from 1 to 5", spec)
		}
		samples = append(samples, types.EnergySample{
			At:    day.Add(time.Duration(at.Hour())*time.Hour + time.Duration(at.Minute())*time.Minute),
			Level: level,
		})
	}
	return samples, nil
}

func newDecideCmd() *cobra.Command {
	var date, question, chose, reason, background string
	var options []string

	cmd := &cobra.Command{
		Use:   "decide",
		Short: "Record a decision with its options and reasoning",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.close()

			d, found, err := a.planner.RecordDecision(cmd.Context(), today(date), types.Decision{
				Question:          question,
				Context:           background,
				OptionsConsidered: options,
				ChosenOption:      chose,
				Reasoning:         reason,
			})
			if err != nil {
				return err
			}
			fmt.Printf("Decision %s recorded\n", d.ID)
			printContradictions(found)
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "session date (default today)")
	cmd.Flags().StringVar(&question, "question", "", "the question decided")
	cmd.Flags().StringArrayVar(&options, "option", nil, "an option considered (repeatable)")
	cmd.Flags().StringVar(&chose, "chose", "", "the chosen option")
	cmd.Flags().StringVar(&reason, "reasoning", "", "reasoning behind the choice")
	cmd.Flags().StringVar(&background, "context", "", "context around the decision")
	cmd.MarkFlagRequired("question")
	cmd.MarkFlagRequired("chose")
	return cmd
}

func newOutcomeCmd() *cobra.Command {
	var outcome string
	var negative bool

	cmd := &cobra.Command{
		Use:   "outcome <decision-id>",
		Short: "Backfill how a past decision turned out",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.planner.RecordOutcome(cmd.Context(), args[0], outcome, negative); err != nil {
				return err
			}
			fmt.Println("Outcome recorded")
			return nil
		},
	}
	cmd.Flags().StringVar(&outcome, "outcome", "", "how it turned out")
	cmd.Flags().BoolVar(&negative, "negative", false, "mark the outcome as negative")
	cmd.MarkFlagRequired("outcome")
	return cmd
}

func newChatCmd() *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "chat <message...>",
		Short: "Ask the assistant against your assembled context",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.close()

			result, err := a.planner.Chat(cmd.Context(), today(date), strings.Join(args, " "))
			if err != nil {
				return err
			}
			if result.Degraded {
				fmt.Println("(memory unavailable: answering from recent history only)")
			}
			printContradictions(result.Contradictions)
			fmt.Println(result.Response)
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "session date (default today)")
	return cmd
}

func newPatternsCmd() *cobra.Command {
	var asOf string

	cmd := &cobra.Command{
		Use:   "patterns",
		Short: "Review detected patterns over recent sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.close()

			found, err := a.planner.WeeklyPatterns(cmd.Context(), today(asOf))
			if err != nil {
				return err
			}
			if len(found) == 0 {
				fmt.Println("No patterns above thresholds")
				return nil
			}
			for _, p := range found {
				fmt.Printf("[%s] %s\n    evidence: %s\n", p.Kind, p.Description, strings.Join(p.Evidence, ", "))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&asOf, "as-of", "", "analyze the window ending at this date (default today)")
	return cmd
}

func newGoalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "goal",
		Short: "Manage goals",
	}

	var date, title, desc, horizon, parent string
	add := &cobra.Command{
		Use:   "add",
		Short: "Create a goal",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.close()

			g, err := a.planner.CreateGoal(today(date), types.Goal{
				Title:       title,
				Description: desc,
				Horizon:     types.TimeHorizon(horizon),
				ParentID:    parent,
			})
			if err != nil {
				return err
			}
			fmt.Printf("Goal %s created\n", g.ID)
			return nil
		},
	}
	add.Flags().StringVar(&date, "date", "", "session date (default today)")
	add.Flags().StringVar(&title, "title", "", "goal title")
	add.Flags().StringVar(&desc, "description", "", "goal description")
	add.Flags().StringVar(&horizon, "horizon", "weekly", "daily|weekly|monthly|quarterly|yearly")
	add.Flags().StringVar(&parent, "parent", "", "parent goal id")
	add.MarkFlagRequired("title")

	var statusDate string
	status := &cobra.Command{
		Use:   "status <goal-id> <active|paused|completed|abandoned>",
		Short: "Transition a goal",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.planner.ChangeGoalStatus(today(statusDate), args[0], types.GoalStatus(args[1])); err != nil {
				return err
			}
			fmt.Printf("Goal %s is now %s\n", args[0], args[1])
			return nil
		},
	}
	status.Flags().StringVar(&statusDate, "date", "", "session date (default today)")

	list := &cobra.Command{
		Use:   "list",
		Short: "List goals",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.close()

			goals, err := a.planner.Goals()
			if err != nil {
				return err
			}
			if len(goals) == 0 {
				fmt.Println("No goals yet")
				return nil
			}
			ids := make([]string, 0, len(goals))
			for id := range goals {
				ids = append(ids, id)
			}
			sort.Strings(ids)
			for _, id := range ids {
				g := goals[id]
				fmt.Printf("%-36s  %-9s  %-9s  %s\n", g.ID, g.Horizon, g.Status, g.Title)
			}
			return nil
		},
	}

	cmd.AddCommand(add, status, list)
	return cmd
}

func newTasksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "Task-manager collaborator commands",
	}
	cmd.AddCommand(newTasksListCmd(), newTasksDoneCmd())
	return cmd
}

func newTasksListCmd() *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the task manager's items for a date",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.close()

			list, err := a.planner.DayTasks(cmd.Context(), today(date))
			if err != nil {
				return err
			}
			if len(list) == 0 {
				fmt.Println("No tasks (or no task manager configured)")
				return nil
			}
			for _, t := range list {
				fmt.Printf("%-12s  %-10s  %s\n", t.ID, t.Status, t.Title)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "date (default today)")
	return cmd
}

func newTasksDoneCmd() *cobra.Command {
	var date, title, goalID string

	cmd := &cobra.Command{
		Use:   "done <task-id>",
		Short: "Record a task as completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.planner.CompleteTask(cmd.Context(), today(date), args[0], title, goalID); err != nil {
				return err
			}
			fmt.Printf("Task %s completed\n", args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "session date (default today)")
	cmd.Flags().StringVar(&title, "title", "", "task title for the record")
	cmd.Flags().StringVar(&goalID, "goal", "", "goal this task advances")
	return cmd
}

func newFactCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fact",
		Short: "Manage standing facts",
	}

	set := &cobra.Command{
		Use:   "set <topic> <key> <value>",
		Short: "Record (or update) a standing fact",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.planner.RememberFact(args[0], args[1], args[2], "cli"); err != nil {
				return err
			}
			fmt.Printf("Fact %s/%s set\n", args[0], args[1])
			return nil
		},
	}

	list := &cobra.Command{
		Use:   "list <topic>",
		Short: "Show the latest facts for a topic",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.close()

			facts, err := a.store.GetFacts(args[0])
			if err != nil {
				return err
			}
			for _, f := range facts {
				fmt.Printf("%-24s  %s\n", f.Key, f.Value)
			}
			return nil
		},
	}

	cmd.AddCommand(set, list)
	return cmd
}

func newShowCmd() *cobra.Command {
	var date, query string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the assembled context bundle for a date",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.close()

			bundle, err := a.planner.Assembler().Assemble(cmd.Context(), today(date), query)
			if err != nil {
				return err
			}
			printBundle(bundle)
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "target date (default today)")
	cmd.Flags().StringVar(&query, "query", "", "optional retrieval query")
	return cmd
}

// newScanCmd runs the background pattern worker and config watcher until
// interrupted. Useful alongside a long-lived shell session.
func newScanCmd() *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Run the background pattern scanner until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.close()

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			watcher, err := config.NewWatcher(a.cfg.ConfigPath(), nil)
			if err == nil {
				if err := watcher.Start(ctx); err == nil {
					defer watcher.Stop()
				}
			}

			detector := patterns.NewDetector(a.store, a.cfg.Patterns)
			worker := patterns.NewWorker(detector, interval, func(found []types.Pattern) {
				for _, p := range found {
					fmt.Printf("[%s] %s\n", p.Kind, p.Description)
				}
			})
			worker.Start()
			defer worker.Stop()

			fmt.Println("Scanning for patterns (ctrl-c to stop)")
			<-ctx.Done()
			return nil
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", time.Hour, "scan interval")
	return cmd
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show store statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.close()

			stats, err := a.store.Stats()
			if err != nil {
				return err
			}
			tables := make([]string, 0, len(stats))
			for t := range stats {
				tables = append(tables, t)
			}
			sort.Strings(tables)
			for _, t := range tables {
				fmt.Printf("%-16s %d\n", t, stats[t])
			}
			return nil
		},
	}
}

func printContradictions(found []types.Contradiction) {
	for _, c := range found {
		fmt.Printf("⚠ conflicts with your history (%.0f%% similar): %q\n",
			c.Similarity*100, c.Candidate.Text)
	}
}

func printBundle(b *types.ContextBundle) {
	fmt.Printf("Context for %s (assembled %s)\n", b.TargetDate, b.AssembledAt.Format(time.RFC3339))
	if b.MemoryDegraded {
		fmt.Println("  [degraded: memory collaborator unavailable]")
	}
	if len(b.StandingFacts) > 0 {
		fmt.Println("Standing facts:")
		keys := make([]string, 0, len(b.StandingFacts))
		for k := range b.StandingFacts {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Printf("  %s = %s\n", k, b.StandingFacts[k])
		}
	}
	if len(b.Goals) > 0 {
		fmt.Println("Active goals:")
		for _, g := range b.Goals {
			fmt.Printf("  [%s] %s", g.Horizon, g.Title)
			if g.TasksDone > 0 {
				fmt.Printf(" (%d tasks done)", g.TasksDone)
			}
			fmt.Println()
		}
	}
	for _, s := range b.Sessions {
		state := "open"
		if !s.Open() {
			state = "closed"
		}
		fmt.Printf("Session %s (%s)", s.Date, state)
		if s.Morning != nil {
			fmt.Printf(" energy=%d focus=%q", s.Morning.EnergyLevel, s.Morning.IntendedFocus)
		}
		fmt.Println()
		for _, d := range s.Decisions {
			fmt.Printf("  decision %s: %q -> %q", d.ID, d.Question, d.ChosenOption)
			if d.Outcome != "" {
				fmt.Printf(" (outcome: %s)", d.Outcome)
			}
			fmt.Println()
		}
	}
	if len(b.Memories) > 0 {
		fmt.Println("Memories:")
		for _, m := range b.Memories {
			fmt.Printf("  %.2f  %s\n", m.Score, m.Text)
		}
	}
	if b.Truncated {
		fmt.Println("(truncated to budget)")
	}
}
