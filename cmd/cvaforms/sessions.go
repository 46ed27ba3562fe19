package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/jun787/CVA-cupping-forms/internal/schema"
	"github.com/jun787/CVA-cupping-forms/internal/session"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// sessionsCmd groups the session commands
var sessionsCmd = &cobra.Command{
	Use:     "sessions",
	Aliases: []string{"session"},
	Short:   "Manage cupping sessions",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sessions, most recently updated first",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}

		sessions := store.List()
		if len(sessions) == 0 {
			fmt.Println("No sessions")
			return nil
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tTITLE\tSAMPLE\tVALUES\tUPDATED")
		for _, s := range sessions {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n",
				s.ID, s.Title, s.SampleName, len(s.Values), s.UpdatedAt.Local().Format(time.DateTime))
		}
		return tw.Flush()
	},
}

var sessionsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an empty session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		sess, err := store.Create()
		if err != nil {
			return err
		}

		patch := metaPatchFromFlags(cmd)
		if !patch.Empty() {
			if sess, err = store.UpdateMeta(sess.ID, patch); err != nil {
				return err
			}
		}
		fmt.Println(sess.ID)
		return nil
	},
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Print a session with its values",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		sess, err := store.Get(args[0])
		if err != nil {
			return err
		}
		format, _ := cmd.Flags().GetString("output")
		return printSession(sess, format)
	},
}

var sessionsDuplicateCmd = &cobra.Command{
	Use:   "duplicate ID",
	Short: "Copy a session's values into a new session",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		dup, err := store.Duplicate(args[0])
		if err != nil {
			return err
		}
		fmt.Println(dup.ID)
		return nil
	},
}

var sessionsRemoveCmd = &cobra.Command{
	Use:     "rm ID...",
	Aliases: []string{"remove", "delete"},
	Short:   "Delete sessions",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		for _, id := range args {
			if err := store.Remove(id); err != nil {
				return err
			}
			fmt.Printf("Removed %s\n", id)
		}
		return nil
	},
}

var sessionsSetCmd = &cobra.Command{
	Use:   "set ID FIELD VALUE",
	Short: "Set one field value",
	Long: `Set one field value. VALUE is parsed as true, false, null (clears the field),
a number, or otherwise text. Prefix with '=' to force text, e.g. "=12".`,
	Args: cobra.ExactArgs(3),
	RunE: func(_ *cobra.Command, args []string) error {
		fields, err := loadFields()
		if err != nil {
			return err
		}
		if _, ok := fields.Lookup(args[1]); !ok {
			return fmt.Errorf("field %q is not defined in %s", args[1], appConfig.FieldsPath)
		}

		store, err := openStore()
		if err != nil {
			return err
		}
		if _, err := store.UpdateValue(args[0], args[1], schema.ParseValue(args[2])); err != nil {
			return err
		}
		return nil
	},
}

var sessionsMetaCmd = &cobra.Command{
	Use:   "meta ID",
	Short: "Change a session's title or sample name",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		patch := metaPatchFromFlags(cmd)
		if patch.Empty() {
			return fmt.Errorf("nothing to change, pass --title or --sample")
		}
		store, err := openStore()
		if err != nil {
			return err
		}
		_, err = store.UpdateMeta(args[0], patch)
		return err
	},
}

func init() {
	rootCmd.AddCommand(sessionsCmd)
	sessionsCmd.AddCommand(sessionsListCmd, sessionsCreateCmd, sessionsShowCmd,
		sessionsDuplicateCmd, sessionsRemoveCmd, sessionsSetCmd, sessionsMetaCmd)

	for _, c := range []*cobra.Command{sessionsCreateCmd, sessionsMetaCmd} {
		c.Flags().String("title", "", "session title")
		c.Flags().String("sample", "", "sample name")
	}
	sessionsShowCmd.Flags().StringP("output", "o", "json", "output format (json, yaml)")
}

// metaPatchFromFlags only sets what was given on the command line, so "" can clear a name
func metaPatchFromFlags(cmd *cobra.Command) session.MetaPatch {
	var patch session.MetaPatch
	if cmd.Flags().Changed("title") {
		v, _ := cmd.Flags().GetString("title")
		patch.Title = &v
	}
	if cmd.Flags().Changed("sample") {
		v, _ := cmd.Flags().GetString("sample")
		patch.SampleName = &v
	}
	return patch
}

func printSession(sess *session.Session, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(sess)
	case "yaml", "yml":
		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		if err := enc.Encode(sess); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown output format %q, must be json or yaml", format)
	}
}
