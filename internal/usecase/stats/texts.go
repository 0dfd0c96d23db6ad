package stats

// NoData отправляется, если в таблице не осталось участников.
const NoData = "В таблице нет данных для отображения."

const commandsList = "/chart - столбчатая диаграмма\n" +
	"/stats - текстовая статистика по палочникам\n" +
	"/rules - правила получения и списания палок\n" +
	"/sticks - изменить количество палок\n" +
	"/subscribe - подписаться на уведомления об изменениях\n" +
	"/unsubscribe - отписаться от уведомлений об изменениях\n" +
	"/time - создать опрос \"Во сколько играем?\"\n" +
	"/results - показать результаты опроса"

// Welcome отправляется на /start.
const Welcome = "Привет! Я бот, который показывает диаграммы из Google таблицы \"Палочники\".\n\n" +
	"Используйте следующие команды:\n" + commandsList

// UnknownCommand отправляется на неизвестную команду.
const UnknownCommand = "❌ Неизвестная команда\n\nДоступные команды:\n" + commandsList

// Rules — правила получения и списания палок, HTML.
const Rules = "📜 <b>Правила получения и списания палок:</b>\n\n" +
	"1️⃣ Палку получает тот кто не играл в текущий день\n\n" +
	"2️⃣ При появлении ситуации, где нужно решать играет чел или нет, внимание обращается на палки и в случаи его не участия в игре по причине большего кол-ва палок у него все палки обнуляются на следующий день\n\n" +
	"3️⃣ Расчётное время начисления палок 00:00 по Члб\n\n" +
	"4️⃣ При спорных ситуациях при начислении палок, решают данную ситуацию первых 3 человека у которых меньше всего палок\n\n" +
	"5️⃣ Если из за участника нет возможности играть рейтинговую игру, то путем голосования принимается решение получает он палку или нет\n\n" +
	"6️⃣ Оспорить начисление палки можно в письменной форме в чате, срок рассмотрения составляет одни сутки"

// SticksUsage показывается на /sticks без аргументов.
const SticksUsage = "❗️ Использование команды:\n" +
	"/sticks <имя> <количество>\n\n" +
	"Например:\n" +
	"/sticks Иван 5\n\n" +
	"📝 Команда изменит количество палок у указанного участника."
