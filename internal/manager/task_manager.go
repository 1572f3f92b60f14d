package manager

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"todo-chat/internal/logger"
	"todo-chat/internal/models"
	"todo-chat/internal/nlp"
	"todo-chat/internal/storage"
	"todo-chat/internal/views"
)

// MaxTitleLength: предел длины заголовка в символах
const MaxTitleLength = 1000

var (
	addTaskCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "todoapp_tasks_added_total",
			Help: "Total number of AddTask operations",
		},
		[]string{"status"},
	)

	updateTaskCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "todoapp_tasks_updated_total",
			Help: "Total number of UpdateTask operations",
		},
		[]string{"status"},
	)

	deleteTaskCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "todoapp_tasks_deleted_total",
			Help: "Total number of DeleteTask operations",
		},
		[]string{"status"},
	)

	taskTitleLength = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "todoapp_task_title_length_bytes",
			Help:    "Length distribution of task titles",
			Buckets: []float64{10, 25, 50, 100, 500, 1000},
		},
	)

	addTaskDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "todoapp_add_task_duration_seconds",
			Help:    "Duration of AddTask operation in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	updateTaskDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "todoapp_update_task_duration_seconds",
			Help:    "Duration of UpdateTask operation in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)
)

// TaskManager держит бизнес-логику задач поверх хранилища: валидация, метрики,
// изоляция по пользователю.
type TaskManager struct {
	store storage.Storage
	now   func() time.Time
	// сериализует чтение-изменение-запись в UpdateTask
	mu sync.Mutex
}

func NewTaskManager(store storage.Storage) *TaskManager {
	return &TaskManager{store: store, now: func() time.Time { return time.Now().UTC() }}
}

func (tm *TaskManager) AddTask(ctx context.Context, username string, req models.CreateTaskRequest) (*models.Task, error) {
	startTime := time.Now()
	defer func() {
		addTaskDuration.Observe(time.Since(startTime).Seconds())
	}()

	title := strings.TrimSpace(req.Title)
	if err := validateTitle(title); err != nil {
		addTaskCount.WithLabelValues("error").Inc()
		return nil, err
	}

	priority := models.PriorityMedium
	if req.Priority != "" {
		p, err := models.ParsePriority(string(req.Priority))
		if err != nil {
			addTaskCount.WithLabelValues("error").Inc()
			return nil, err
		}
		priority = p
	}

	if req.DueDate != "" {
		if err := models.ValidateDate(req.DueDate); err != nil {
			addTaskCount.WithLabelValues("error").Inc()
			return nil, err
		}
	}

	now := tm.now()
	task := models.Task{
		ID:          uuid.NewString(),
		Username:    username,
		Title:       title,
		Description: req.Description,
		Status:      models.StatusTodo,
		Priority:    priority,
		DueDate:     req.DueDate,
		Category:    req.Category,
		Tags:        req.Tags,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := tm.store.CreateTask(ctx, task); err != nil {
		addTaskCount.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("create task: %w", err)
	}

	addTaskCount.WithLabelValues("success").Inc()
	taskTitleLength.Observe(float64(len(title)))
	logger.Debug(ctx, "Задача создана", "user", username, "id", task.ID)

	return &task, nil
}

func (tm *TaskManager) UpdateTask(ctx context.Context, username, id string, upd models.TaskUpdate) (*models.Task, error) {
	startTime := time.Now()
	defer func() {
		updateTaskDuration.Observe(time.Since(startTime).Seconds())
	}()

	if err := validateUpdate(&upd); err != nil {
		updateTaskCount.WithLabelValues("error").Inc()
		return nil, err
	}

	tm.mu.Lock()
	defer tm.mu.Unlock()

	task, err := tm.store.GetTask(ctx, username, id)
	if err != nil {
		updateTaskCount.WithLabelValues("error").Inc()
		return nil, err
	}

	upd.Apply(task, tm.now())
	if err := tm.store.SaveTask(ctx, *task); err != nil {
		updateTaskCount.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("save task: %w", err)
	}

	updateTaskCount.WithLabelValues("success").Inc()
	return task, nil
}

func (tm *TaskManager) GetTask(ctx context.Context, username, id string) (*models.Task, error) {
	return tm.store.GetTask(ctx, username, id)
}

// ListTasks возвращает задачи пользователя в порядке создания, отфильтрованные filter.
func (tm *TaskManager) ListTasks(ctx context.Context, username string, filter models.TaskFilter) ([]models.Task, error) {
	all, err := tm.store.ListTasks(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	tasks := make([]models.Task, 0, len(all))
	for _, t := range all {
		if filter.Match(t) {
			tasks = append(tasks, t)
		}
	}
	return tasks, nil
}

func (tm *TaskManager) DeleteTask(ctx context.Context, username, id string) error {
	if err := tm.store.DeleteTask(ctx, username, id); err != nil {
		deleteTaskCount.WithLabelValues("error").Inc()
		return err
	}
	deleteTaskCount.WithLabelValues("success").Inc()
	return nil
}

// FindByTitle ищет задачу по названию: точное совпадение, затем вхождение
// в любую сторону, затем нечёткое совпадение.
func (tm *TaskManager) FindByTitle(ctx context.Context, username, title string) (*models.Task, error) {
	tasks, err := tm.store.ListTasks(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	query := strings.ToLower(strings.TrimSpace(title))
	if query == "" {
		return nil, storage.ErrTaskNotFound
	}

	for i := range tasks {
		if strings.ToLower(tasks[i].Title) == query {
			return &tasks[i], nil
		}
	}
	for i := range tasks {
		t := strings.ToLower(tasks[i].Title)
		if strings.Contains(t, query) || strings.Contains(query, t) {
			return &tasks[i], nil
		}
	}
	for i := range tasks {
		if nlp.Ratio(query, tasks[i].Title) >= nlp.DefaultThreshold {
			return &tasks[i], nil
		}
	}
	return nil, storage.ErrTaskNotFound
}

// Stats: сводка дашборда по задачам пользователя
func (tm *TaskManager) Stats(ctx context.Context, username string) (views.Stats, error) {
	tasks, err := tm.store.ListTasks(ctx, username)
	if err != nil {
		return views.Stats{}, fmt.Errorf("list tasks: %w", err)
	}
	return views.Dashboard(tasks, tm.now()), nil
}

// IsValidationError: ошибка вызвана входными данными, а не хранилищем
func IsValidationError(err error) bool {
	return errors.Is(err, ErrTitleRequired) || errors.Is(err, ErrTitleTooLong) ||
		errors.Is(err, models.ErrInvalidStatus) || errors.Is(err, models.ErrInvalidPriority) ||
		errors.Is(err, models.ErrInvalidDueDate)
}

func validateTitle(title string) error {
	if title == "" {
		return ErrTitleRequired
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return ErrTitleTooLong
	}
	return nil
}

// validateUpdate проверяет и нормализует поля обновления
func validateUpdate(upd *models.TaskUpdate) error {
	if upd.Title != nil {
		title := strings.TrimSpace(*upd.Title)
		if err := validateTitle(title); err != nil {
			return err
		}
		upd.Title = &title
	}
	if upd.Status != nil {
		st, err := models.ParseStatus(string(*upd.Status))
		if err != nil {
			return err
		}
		upd.Status = &st
	}
	if upd.Priority != nil {
		p, err := models.ParsePriority(string(*upd.Priority))
		if err != nil {
			return err
		}
		upd.Priority = &p
	}
	// пустая строка снимает срок
	if upd.DueDate != nil && *upd.DueDate != "" {
		if err := models.ValidateDate(*upd.DueDate); err != nil {
			return err
		}
	}
	return nil
}
