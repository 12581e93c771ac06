// 数据集加载器：把 Empatica E4 会话数据批量导入数据库，
// 并（可选）发布一条流水线触发事件。
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"wearable-analytics/internal/common/database"
	"wearable-analytics/internal/common/logger"
	rediscommon "wearable-analytics/internal/common/redis"
	"wearable-analytics/internal/config"
	"wearable-analytics/internal/ingest"
	"wearable-analytics/internal/models"
	"wearable-analytics/internal/repository"
)

var allSessionTypes = []string{
	models.SessionTypeStress,
	models.SessionTypeAerobic,
	models.SessionTypeAnaerobic,
}

func main() {
	dataDir := flag.String("data-dir", "./data", "dataset root directory (contains STRESS/AEROBIC/ANAEROBIC)")
	subjectInfo := flag.String("subject-info", "", "path to subject-info.csv (optional)")
	sessionType := flag.String("session-type", "all", "session type to load: STRESS, AEROBIC, ANAEROBIC or all")
	subject := flag.String("subject", "", "load a single subject only (default: all subjects found)")
	includeProblematic := flag.Bool("include-problematic", false, "also load subjects with known data issues (still skips unusable ones)")
	trigger := flag.Bool("trigger", true, "publish a pipeline trigger event after loading")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zapLogger, err := logger.NewLogger(cfg.Log.Level, "console", "load-measurements")
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()

	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close(db)

	measurements := repository.NewMeasurementsRepository(db, zapLogger)
	sessions := repository.NewSessionsRepository(db, zapLogger)

	ctx := context.Background()

	// 1. 受试者静态信息
	if *subjectInfo != "" {
		if err := loadSubjects(ctx, sessions, *subjectInfo, zapLogger); err != nil {
			zapLogger.Fatal("Failed to load subject info", zap.Error(err))
		}
	}

	// 2. 会话信号数据
	types, err := resolveSessionTypes(*sessionType)
	if err != nil {
		zapLogger.Fatal("Invalid session type", zap.Error(err))
	}

	loaded := 0
	for _, st := range types {
		subjects, err := listSubjectDirs(*dataDir, st, *subject)
		if err != nil {
			zapLogger.Fatal("Failed to list subject directories",
				zap.String("session_type", st),
				zap.Error(err),
			)
		}

		for _, subjectID := range subjects {
			skip, issue := ingest.ShouldSkipSubject(subjectID, st, *includeProblematic)
			if skip {
				zapLogger.Warn("Skipping subject with known data issue",
					zap.String("subject_id", subjectID),
					zap.String("session_type", st),
					zap.String("issue", issue),
				)
				continue
			}

			if err := loadSession(ctx, measurements, sessions, *dataDir, subjectID, st, issue, zapLogger); err != nil {
				zapLogger.Error("Failed to load session",
					zap.String("subject_id", subjectID),
					zap.String("session_type", st),
					zap.Error(err),
				)
				continue
			}
			loaded++
		}
	}

	zapLogger.Info("Dataset load finished", zap.Int("sessions_loaded", loaded))

	// 3. 触发流水线运行
	if *trigger && loaded > 0 {
		redisClient := rediscommon.NewRedisClient(&cfg.Redis)
		defer rediscommon.Close(redisClient)

		event := models.TriggerEvent{
			Reason:    "session_loaded",
			Source:    "load-measurements",
			Timestamp: time.Now().Unix(),
		}
		if _, err := rediscommon.PublishJSONToStream(ctx, redisClient, cfg.Pipeline.Streams.Trigger, event); err != nil {
			zapLogger.Error("Failed to publish trigger event", zap.Error(err))
		} else {
			zapLogger.Info("Pipeline trigger published",
				zap.String("stream", cfg.Pipeline.Streams.Trigger),
			)
		}
	}
}

// loadSubjects 解析并写入受试者静态信息
func loadSubjects(ctx context.Context, repo *repository.SessionsRepository, path string, zapLogger *zap.Logger) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open subject info: %w", err)
	}
	defer file.Close()

	subjects, err := ingest.ParseSubjectInfo(file)
	if err != nil {
		return fmt.Errorf("failed to parse subject info: %w", err)
	}

	for _, s := range subjects {
		if err := repo.UpsertSubject(ctx, &s); err != nil {
			return fmt.Errorf("failed to upsert subject %s: %w", s.SubjectID, err)
		}
	}

	zapLogger.Info("Subject info loaded", zap.Int("subjects", len(subjects)))
	return nil
}

// loadSession 加载单个会话：先清空同会话旧数据再整体写入，重跑安全
func loadSession(
	ctx context.Context,
	measurements *repository.MeasurementsRepository,
	sessions *repository.SessionsRepository,
	dataDir, subjectID, sessionType, quality string,
	zapLogger *zap.Logger,
) error {
	rows, session, err := ingest.LoadSubjectSession(dataDir, subjectID, sessionType, quality)
	if err != nil {
		return err
	}

	if err := sessions.UpsertSession(ctx, session); err != nil {
		return fmt.Errorf("failed to upsert session: %w", err)
	}

	if err := measurements.DeleteBySession(ctx, session.SessionID); err != nil {
		return fmt.Errorf("failed to clear previous measurements: %w", err)
	}

	if err := measurements.BatchInsert(ctx, rows); err != nil {
		return fmt.Errorf("failed to insert measurements: %w", err)
	}

	zapLogger.Info("Session loaded",
		zap.String("session_id", session.SessionID),
		zap.Int("measurements", len(rows)),
		zap.Float64("duration_minutes", session.DurationMinutes),
	)
	return nil
}

func resolveSessionTypes(value string) ([]string, error) {
	if strings.EqualFold(value, "all") {
		return allSessionTypes, nil
	}
	upper := strings.ToUpper(value)
	for _, st := range allSessionTypes {
		if upper == st {
			return []string{upper}, nil
		}
	}
	return nil, fmt.Errorf("unknown session type %q", value)
}

// listSubjectDirs 枚举某会话类型目录下的受试者目录
func listSubjectDirs(dataDir, sessionType, only string) ([]string, error) {
	if only != "" {
		return []string{only}, nil
	}

	entries, err := os.ReadDir(filepath.Join(dataDir, sessionType))
	if err != nil {
		return nil, err
	}

	var subjects []string
	for _, e := range entries {
		if e.IsDir() {
			subjects = append(subjects, e.Name())
		}
	}
	sort.Strings(subjects)
	return subjects, nil
}
