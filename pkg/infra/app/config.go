package app

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// envPrefix 由应用名推导，例如 ieum-rag -> IEUM_RAG。
func (a *App) envPrefix() string {
	return strings.ToUpper(strings.ReplaceAll(a.name, "-", "_"))
}

// loadConfig 依次合并配置文件、环境变量与显式设置的 flag。
func (a *App) loadConfig(cmd *cobra.Command) error {
	v := viper.New()

	if err := a.readConfigFile(v, cmd); err != nil {
		return err
	}

	v.SetEnvPrefix(a.envPrefix())
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// 绑定 flag 后未出现在文件中的键也能从环境变量读取
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("failed to bind flags: %w", err)
	}

	changed := make(map[string]string)
	cmd.Flags().Visit(func(f *pflag.Flag) {
		changed[f.Name] = f.Value.String()
	})

	if err := v.Unmarshal(a.options); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// 显式设置的 flag 优先级最高
	for name, val := range changed {
		if err := cmd.Flags().Set(name, val); err != nil {
			return fmt.Errorf("failed to re-apply flag %s: %w", name, err)
		}
	}
	return nil
}

// readConfigFile 读取 -c 指定的文件，未指定时在默认路径查找；找不到默认文件不算错误。
func (a *App) readConfigFile(v *viper.Viper, cmd *cobra.Command) error {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		v.SetConfigName(a.name)
		v.SetConfigType("yaml")
		for _, dir := range a.configPaths() {
			v.AddConfigPath(dir)
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if errors.As(err, &notFound) {
				return nil
			}
			return fmt.Errorf("failed to read config file: %w", err)
		}
		path = v.ConfigFileUsed()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if ext := strings.TrimPrefix(filepath.Ext(path), "."); ext != "" {
		v.SetConfigType(ext)
	} else {
		v.SetConfigType("yaml")
	}
	if err := v.ReadConfig(bytes.NewReader(expandEnv(data))); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (a *App) configPaths() []string {
	paths := []string{".", "./configs"}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, "."+a.name))
	}
	return append(paths, "/etc/"+a.name)
}

var envPattern = regexp.MustCompile(`\$\{([^}]+)\}|\$([A-Za-z_][A-Za-z0-9_]*)`)

// expandEnv 替换 ${VAR} 与 $VAR，未设置的变量保持原样。
func expandEnv(data []byte) []byte {
	return envPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		sub := envPattern.FindSubmatch(match)
		name := sub[1]
		if len(name) == 0 {
			name = sub[2]
		}
		if val, ok := os.LookupEnv(string(name)); ok {
			return []byte(val)
		}
		return match
	})
}
