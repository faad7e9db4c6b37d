package bot

const (
	textGreeting        = "Привет! Я ToDo-бот 👋\nВыбери действие:"
	textAskTask         = "📝 Напиши задачу:"
	textEmptyTask       = "⚠️ Задача не может быть пустой."
	textAddedFmt        = "✅ Добавлена: %s"
	textCancelled       = "❌ Добавление отменено."
	textNothingToCancel = "Нечего отменять."
	textNoTasks         = "📭 Задач нет"
	textTaskList        = "📝 Твои задачи:"
	textTaskNotFound    = "⚠️ Задача не найдена."
	textDeletedFmt      = "✅ Удалена: %s"
	textUnknownCommand  = "Не знаю такой команды.\n/add - добавить задачу\n/list - список задач\n/cancel - отменить добавление"
	textInternalError   = "⚠️ Что-то пошло не так, попробуй позже."
)

const (
	cmdStart  = "start"
	cmdAdd    = "add"
	cmdList   = "list"
	cmdCancel = "cancel"
)
