package main

import (
	"ai-build-shop/internal/client"
	"ai-build-shop/internal/dto"
	"ai-build-shop/internal/repository"
	"ai-build-shop/internal/service"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func migrateCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, closeDB, err := e.openDB()
			if err != nil {
				return err
			}
			defer closeDB()

			fmt.Fprintf(cmd.OutOrStdout(), "schema up to date (%s)\n", e.cfg.Database.Driver)
			return nil
		},
	}
}

func seedCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert the demo catalog (existing rows are kept)",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, closeDB, err := e.openDB()
			if err != nil {
				return err
			}
			defer closeDB()

			if err := repository.NewCatalogRepository(db).Seed(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "catalog seeded")
			return nil
		},
	}
}

func ordersCmd(e *env) *cobra.Command {
	var userID uint

	cmd := &cobra.Command{
		Use:   "orders",
		Short: "List orders, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, closeDB, err := e.openDB()
			if err != nil {
				return err
			}
			defer closeDB()

			orders := service.NewOrderService(repository.NewOrderRepository(db))

			var list *dto.OrderListResponse
			if userID != 0 {
				list, err = orders.ListMine(cmd.Context(), userID)
			} else {
				list, err = orders.ListAll(cmd.Context())
			}
			if err != nil {
				return err
			}

			return printOrders(cmd.OutOrStdout(), list.Orders...)
		},
	}

	cmd.Flags().UintVar(&userID, "user-id", 0, "only show orders of this user")
	return cmd
}

func reconcileCmd(e *env) *cobra.Command {
	var sessionID string

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Pull a checkout session from the payment gateway and settle its order",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, closeDB, err := e.openDB()
			if err != nil {
				return err
			}
			defer closeDB()

			producer, err := client.InitKafkaProducer(&e.cfg.Kafka, e.log)
			if err != nil {
				return err
			}
			var publisher client.EventPublisher
			if producer != nil {
				publisher = client.NewEventPublisher(producer, e.cfg.Kafka.OrderTopic, e.log)
				defer publisher.Close()
			}

			notifier := service.NewNotificationService(repository.NewUserRepository(db), client.NewMailer(e.cfg.SMTP), publisher, e.log)
			defer notifier.Wait()

			reconciler := service.NewReconcileService(
				db,
				client.NewStripeGateway(&e.cfg.Stripe, e.log),
				repository.NewOrderRepository(db),
				repository.NewWebhookEventRepository(db),
				notifier,
				e.log,
			)

			order, err := reconciler.ReconcileSession(cmd.Context(), sessionID)
			if err != nil {
				return fmt.Errorf("reconcile %s: %w", sessionID, err)
			}
			return printOrders(cmd.OutOrStdout(), order)
		},
	}

	cmd.Flags().StringVar(&sessionID, "session", "", "checkout session id")
	_ = cmd.MarkFlagRequired("session")
	return cmd
}

func printOrders(out io.Writer, orders ...*dto.OrderResponse) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tITEM\tAMOUNT\tUSER\tCREATED")
	for _, o := range orders {
		fmt.Fprintf(w, "%d\t%s\t%s %d (%s)\tEUR %s\t%s\t%s\n",
			o.ID, o.Status, o.ItemType, o.ItemID, o.ItemName, o.AmountEur, o.UserEmail, o.CreatedAt.Format(time.RFC3339))
	}
	return w.Flush()
}
