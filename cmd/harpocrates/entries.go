package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/forest6511/harpocrates/internal/cli"
	"github.com/forest6511/harpocrates/pkg/security"
	"github.com/forest6511/harpocrates/pkg/vault"
)

// Entry field flags shared by add and update
var (
	entryTitle    string
	entryUsername string
	entryURL      string
	entryNotes    string
	entryGenerate bool
	entryLength   int
	entryPassword bool
)

// Flags for get and delete
var (
	getShow     bool
	getField    string
	deleteForce bool
)

func init() {
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(deleteCmd)

	addCmd.Flags().StringVarP(&entryUsername, "username", "u", "", "Username or email")
	addCmd.Flags().StringVar(&entryURL, "url", "", "Website URL")
	addCmd.Flags().StringVar(&entryNotes, "notes", "", "Free-form notes")
	addCmd.Flags().BoolVarP(&entryGenerate, "generate", "g", false, "Generate a random password instead of prompting")
	addCmd.Flags().IntVarP(&entryLength, "length", "l", 0, "Generated password length (default from config)")

	updateCmd.Flags().StringVar(&entryTitle, "title", "", "New title")
	updateCmd.Flags().StringVarP(&entryUsername, "username", "u", "", "New username (empty string clears it)")
	updateCmd.Flags().StringVar(&entryURL, "url", "", "New URL (empty string clears it)")
	updateCmd.Flags().StringVar(&entryNotes, "notes", "", "New notes (empty string clears them)")
	updateCmd.Flags().BoolVarP(&entryPassword, "password", "p", false, "Prompt for a new password")
	updateCmd.Flags().BoolVarP(&entryGenerate, "generate", "g", false, "Replace the password with a generated one")
	updateCmd.Flags().IntVarP(&entryLength, "length", "l", 0, "Generated password length (default from config)")

	getCmd.Flags().BoolVar(&getShow, "show", false, "Reveal the password")
	getCmd.Flags().StringVar(&getField, "field", "", "Print a single field: title, username, password, url, notes, id")

	deleteCmd.Flags().BoolVarP(&deleteForce, "force", "f", false, "Skip confirmation prompt")
}

// addCmd stores a new credential.
var addCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Add a credential",
	Long: `Add a credential to the vault. The password is prompted without echo
unless --generate is given.

Examples:
  harpocrates add GitHub -u octocat --url https://github.com
  harpocrates add "Home Wi-Fi" --generate -l 32`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in := vault.EntryInput{
			Title:    args[0],
			Username: entryUsername,
			URL:      entryURL,
			Notes:    entryNotes,
		}

		sess, err := openVault()
		if err != nil {
			return err
		}
		defer sess.Close()

		in.Password, err = newEntryPassword(cmd)
		if err != nil {
			return err
		}

		added, err := sess.AddEntry(in)
		if err != nil {
			return fmt.Errorf("failed to add entry: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %q (%s)\n", successStyle.Render("Added"), added.Title, shortID(added.ID))
		return nil
	},
}

// newEntryPassword generates or prompts for an entry password.
func newEntryPassword(cmd *cobra.Command) (string, error) {
	if entryGenerate {
		password, err := security.Generate(security.GenerateOptions{
			Length:  entryGenerateLength(),
			Exclude: cfg.Generator.Exclude,
		})
		if err != nil {
			return "", err
		}
		fmt.Fprintln(cmd.ErrOrStderr(), "Generated a random password")
		return password, nil
	}

	password, err := readSecret("Entry password: ", "")
	if err != nil {
		return "", err
	}
	if password == "" {
		return "", vault.ErrEmptyPassword
	}
	if security.CalculatePasswordStrength(password) == security.PasswordWeak {
		fmt.Fprintln(cmd.ErrOrStderr(), warningStyle.Render("warning: this password is weak"))
	}
	return password, nil
}

func entryGenerateLength() int {
	if entryLength > 0 {
		return entryLength
	}
	return cfg.Generator.Length
}

// listCmd lists all entries without passwords.
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List credentials (passwords are never shown)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := openVault()
		if err != nil {
			return err
		}
		defer sess.Close()

		entries, err := sess.Entries()
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "The vault is empty")
			return nil
		}

		indexes := make([]int, len(entries))
		for i := range entries {
			indexes[i] = i
		}
		printEntryTable(cmd.OutOrStdout(), entries, indexes)
		fmt.Fprintf(cmd.OutOrStdout(), "\nTotal: %d entries\n", len(entries))
		return nil
	},
}

// searchCmd finds entries by title, username, URL or notes.
var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search credentials by title, username, URL or notes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := openVault()
		if err != nil {
			return err
		}
		defer sess.Close()

		entries, err := sess.Entries()
		if err != nil {
			return err
		}

		matches := cli.Search(args[0], entries)
		if len(matches) == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "No entries match %q\n", args[0])
			return nil
		}
		printEntryTable(cmd.OutOrStdout(), entries, matches)
		fmt.Fprintf(cmd.OutOrStdout(), "\nFound: %d entries\n", len(matches))
		return nil
	},
}

// getCmd shows one entry.
var getCmd = &cobra.Command{
	Use:   "get <selector>",
	Short: "Show a credential",
	Long: `Show a credential. The selector is a position (#3), an id or id prefix,
a title, or a glob pattern matching exactly one title.

Examples:
  harpocrates get GitHub
  harpocrates get '#2' --show
  harpocrates get GitHub --field password | pbcopy`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := openVault()
		if err != nil {
			return err
		}
		defer sess.Close()

		entries, err := sess.Entries()
		if err != nil {
			return err
		}
		i, err := cli.SelectOne(args[0], entries)
		if err != nil {
			return err
		}
		e := entries[i]

		if getField != "" {
			value, err := entryField(e, getField)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), value)
			return nil
		}

		printEntry(cmd.OutOrStdout(), e, getShow)
		return nil
	},
}

// entryField returns a single named field of e.
func entryField(e vault.Entry, name string) (string, error) {
	switch name {
	case "title":
		return e.Title, nil
	case "username":
		return e.Username, nil
	case "password":
		return e.Password, nil
	case "url":
		return e.URL, nil
	case "notes":
		return e.Notes, nil
	case "id":
		return e.ID, nil
	default:
		return "", fmt.Errorf("unknown field %q (valid: title, username, password, url, notes, id)", name)
	}
}

// updateCmd edits fields of one entry.
var updateCmd = &cobra.Command{
	Use:   "update <selector>",
	Short: "Update a credential",
	Long: `Update fields of a credential. Only the flags given are changed; an empty
value clears a field (the title cannot be empty).

Examples:
  harpocrates update GitHub --username new@example.com
  harpocrates update '#2' --generate
  harpocrates update GitHub --notes ""`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if entryPassword && entryGenerate {
			return errors.New("--password and --generate are mutually exclusive")
		}
		patch := buildPatch(cmd)
		if patch.IsEmpty() && !entryPassword && !entryGenerate {
			return errors.New("nothing to update: pass at least one field flag")
		}

		sess, err := openVault()
		if err != nil {
			return err
		}
		defer sess.Close()

		entries, err := sess.Entries()
		if err != nil {
			return err
		}
		i, err := cli.SelectOne(args[0], entries)
		if err != nil {
			return err
		}

		if entryPassword || entryGenerate {
			password, err := newEntryPassword(cmd)
			if err != nil {
				return err
			}
			patch.Password = &password
		}

		ok, err := sess.UpdateEntry(i, patch)
		if err != nil {
			return fmt.Errorf("failed to update entry: %w", err)
		}
		if !ok {
			return cli.ErrNoMatch
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %q\n", successStyle.Render("Updated"), entries[i].Title)
		return nil
	},
}

// buildPatch turns the flags the user actually set into a patch.
func buildPatch(cmd *cobra.Command) vault.EntryPatch {
	var patch vault.EntryPatch
	set := func(flag string, value string) *string {
		if !cmd.Flags().Changed(flag) {
			return nil
		}
		v := value
		return &v
	}
	patch.Title = set("title", entryTitle)
	patch.Username = set("username", entryUsername)
	patch.URL = set("url", entryURL)
	patch.Notes = set("notes", entryNotes)
	return patch
}

// deleteCmd removes one entry.
var deleteCmd = &cobra.Command{
	Use:   "delete <selector>",
	Short: "Delete a credential",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := openVault()
		if err != nil {
			return err
		}
		defer sess.Close()

		entries, err := sess.Entries()
		if err != nil {
			return err
		}
		i, err := cli.SelectOne(args[0], entries)
		if err != nil {
			return err
		}
		title := entries[i].Title

		if !deleteForce && !confirm(cmd.OutOrStdout(), fmt.Sprintf("Delete %q?", title)) {
			fmt.Fprintln(cmd.OutOrStdout(), "Aborted")
			return nil
		}

		ok, err := sess.DeleteEntry(i)
		if err != nil {
			return fmt.Errorf("failed to delete entry: %w", err)
		}
		if !ok {
			return cli.ErrNoMatch
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %q\n", successStyle.Render("Deleted"), title)
		return nil
	},
}
