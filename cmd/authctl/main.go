// authctl es la CLI de operación del servicio de autenticación.
// Habla con la API HTTP; no toca la base directamente.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

type client struct {
	BaseURL string
	HTTP    *http.Client
}

func (c *client) do(method, path string, body []byte) (int, []byte, error) {
	url := strings.TrimRight(c.BaseURL, "/") + path
	req, err := http.NewRequest(method, url, bytes.NewReader(body))
	if err != nil {
		return 0, nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, b, nil
}

func (c *client) printJSON(body []byte) {
	var v any
	if json.Unmarshal(body, &v) == nil {
		p, _ := json.MarshalIndent(v, "", "  ")
		fmt.Println(string(p))
		return
	}
	fmt.Println(string(body))
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func main() {
	baseURL := envOr("AUTHSVC_URL", "http://localhost:8080")

	c := &client{HTTP: &http.Client{Timeout: 15 * time.Second}}

	root := &cobra.Command{
		Use:   "authctl",
		Short: "CLI de operación para el servicio de autenticación",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			c.BaseURL = baseURL
		},
	}
	root.PersistentFlags().StringVar(&baseURL, "url", baseURL, "URL base del servicio (env AUTHSVC_URL)")

	root.AddCommand(&cobra.Command{
		Use:   "health",
		Short: "Estado del servicio y sus dependencias",
		RunE: func(cmd *cobra.Command, args []string) error {
			status, body, err := c.do(http.MethodGet, "/healthz", nil)
			if err != nil {
				return err
			}
			c.printJSON(body)
			if status != http.StatusOK {
				return fmt.Errorf("servicio degradado (status %d)", status)
			}
			return nil
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "providers",
		Short: "Lista los providers OAuth habilitados",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, body, err := c.do(http.MethodGet, "/healthz", nil)
			if err != nil {
				return err
			}
			var resp struct {
				Providers []string `json:"providers"`
			}
			if err := json.Unmarshal(body, &resp); err != nil {
				return err
			}
			for _, p := range resp.Providers {
				fmt.Println(p)
			}
			return nil
		},
	})

	linkCmd := &cobra.Command{
		Use:   "link",
		Short: "Vincula un provider OAuth a una cuenta con contraseña",
	}
	var (
		linkProvider string
		linkToken    string
		linkEmail    string
		linkPassword string
	)
	linkCmd.Flags().StringVar(&linkProvider, "provider", "", "provider a vincular (google|facebook)")
	linkCmd.Flags().StringVar(&linkToken, "access-token", "", "access token emitido por el provider")
	linkCmd.Flags().StringVar(&linkEmail, "email", "", "email de la cuenta existente")
	linkCmd.Flags().StringVar(&linkPassword, "password", "", "contraseña de la cuenta existente")
	_ = linkCmd.MarkFlagRequired("provider")
	_ = linkCmd.MarkFlagRequired("access-token")
	linkCmd.RunE = func(cmd *cobra.Command, args []string) error {
		body, _ := json.Marshal(map[string]string{
			"provider":     linkProvider,
			"access_token": linkToken,
			"email":        linkEmail,
			"password":     linkPassword,
		})
		status, out, err := c.do(http.MethodPost, "/auth/link", body)
		if err != nil {
			return err
		}
		c.printJSON(out)
		if status/100 != 2 {
			return fmt.Errorf("link falló (status %d)", status)
		}
		return nil
	}
	root.AddCommand(linkCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
